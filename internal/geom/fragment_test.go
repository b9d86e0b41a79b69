package geom

import (
	"errors"
	"math"
	"testing"
)

func TestCornersWinding(t *testing.T) {
	f := Fragment{
		CornerPos: Vec3{X: 1, Y: 2, Z: 3},
		SSVec:     Vec3{Y: 1},
		FSVec:     Vec3{X: 1},
		SSPixels:  32,
		FSPixels:  128,
	}

	got := f.Corners()
	want := [4]Vec3{
		{X: 1, Y: 2, Z: 3},
		{X: 129, Y: 2, Z: 3},
		{X: 129, Y: 34, Z: 3},
		{X: 1, Y: 34, Z: 3},
	}
	if got != want {
		t.Errorf("Corners() = %v, want %v", got, want)
	}

	centre := f.Centre()
	if centre != (Vec3{X: 65, Y: 18, Z: 3}) {
		t.Errorf("Centre() = %v, want {65 18 3}", centre)
	}
}

func TestSnapPlain(t *testing.T) {
	// Slow scan down the rows, fast scan along the columns: placement is
	// a straight copy.
	f := Fragment{
		CornerPos: Vec3{X: 10, Y: 20},
		SSVec:     Vec3{Y: 1},
		FSVec:     Vec3{X: 1},
		SSPixels:  32,
		FSPixels:  128,
	}

	g, err := f.Snap()
	if err != nil {
		t.Fatalf("Snap() error: %v", err)
	}
	if g.Transpose || g.FlipRows || g.FlipCols {
		t.Errorf("unexpected transform: %+v", g)
	}
	if g.CornerIdx != [2]int{20, 10} {
		t.Errorf("CornerIdx = %v, want [20 10]", g.CornerIdx)
	}
	if g.OppCornerIdx != [2]int{52, 138} {
		t.Errorf("OppCornerIdx = %v, want [52 138]", g.OppCornerIdx)
	}
	if g.PixelDims != [2]int{32, 128} {
		t.Errorf("PixelDims = %v, want [32 128]", g.PixelDims)
	}
}

func TestSnapTransposed(t *testing.T) {
	// Slow scan along +x, fast scan along -y: the placed block is
	// transposed with rows reversed, and the corner moves to the low end
	// of the fast-scan extent.
	f := Fragment{
		CornerPos: Vec3{X: 10, Y: 500},
		SSVec:     Vec3{X: 1},
		FSVec:     Vec3{Y: -1},
		SSPixels:  64,
		FSPixels:  128,
	}

	g, err := f.Snap()
	if err != nil {
		t.Fatalf("Snap() error: %v", err)
	}
	if !g.Transpose || !g.FlipRows || g.FlipCols {
		t.Errorf("transform = %+v, want transpose+flipRows", g)
	}
	if g.CornerIdx != [2]int{372, 10} {
		t.Errorf("CornerIdx = %v, want [372 10]", g.CornerIdx)
	}
	if g.OppCornerIdx != [2]int{500, 74} {
		t.Errorf("OppCornerIdx = %v, want [500 74]", g.OppCornerIdx)
	}
	if g.PixelDims != [2]int{128, 64} {
		t.Errorf("PixelDims = %v, want [128 64]", g.PixelDims)
	}
}

func TestSnapDoubleFlip(t *testing.T) {
	f := Fragment{
		CornerPos: Vec3{X: 0, Y: 0},
		SSVec:     Vec3{Y: -1},
		FSVec:     Vec3{X: -1},
		SSPixels:  2,
		FSPixels:  3,
	}

	g, err := f.Snap()
	if err != nil {
		t.Fatalf("Snap() error: %v", err)
	}
	if g.Transpose || !g.FlipRows || !g.FlipCols {
		t.Errorf("transform = %+v, want flipRows+flipCols without transpose", g)
	}
	if g.CornerIdx != [2]int{-2, -3} {
		t.Errorf("CornerIdx = %v, want [-2 -3]", g.CornerIdx)
	}
	if g.OppCornerIdx != [2]int{0, 0} {
		t.Errorf("OppCornerIdx = %v, want [0 0]", g.OppCornerIdx)
	}
}

func TestSnapRoundsCornerFreely(t *testing.T) {
	// Corner positions carry no tolerance; only orientations do.
	f := Fragment{
		CornerPos: Vec3{X: 2.4, Y: 3.6},
		SSVec:     Vec3{Y: 1},
		FSVec:     Vec3{X: 1},
		SSPixels:  4,
		FSPixels:  4,
	}

	g, err := f.Snap()
	if err != nil {
		t.Fatalf("Snap() error: %v", err)
	}
	if g.CornerIdx != [2]int{4, 2} {
		t.Errorf("CornerIdx = %v, want [4 2]", g.CornerIdx)
	}
}

func TestSnapRejectsTiltedTile(t *testing.T) {
	// A tile tilted ~13 degrees off axis must fail, not truncate to the
	// nearest axis.
	f := Fragment{
		CornerPos: Vec3{},
		SSVec:     Vec3{X: 0.9, Y: 0.2},
		FSVec:     Vec3{X: -0.2, Y: 0.9},
		SSPixels:  4,
		FSPixels:  4,
	}

	_, err := f.Snap()
	if !errors.Is(err, ErrNonAxisAligned) {
		t.Fatalf("Snap() error = %v, want ErrNonAxisAligned", err)
	}
	var nae *NonAxisAlignedError
	if !errors.As(err, &nae) {
		t.Fatalf("Snap() error type = %T, want *NonAxisAlignedError", err)
	}
	if nae.SSVec != f.SSVec {
		t.Errorf("error SSVec = %v, want %v", nae.SSVec, f.SSVec)
	}
}

func TestSnapAcceptsMilliradianTilt(t *testing.T) {
	f := Fragment{
		CornerPos: Vec3{X: 100.2, Y: -50.7},
		SSVec:     Vec3{X: 0.002, Y: 0.999998},
		FSVec:     Vec3{X: 0.999998, Y: -0.002},
		SSPixels:  32,
		FSPixels:  128,
	}

	if _, err := f.Snap(); err != nil {
		t.Fatalf("Snap() error: %v", err)
	}
}

func TestSnapRejectsParallelAxes(t *testing.T) {
	f := Fragment{
		SSVec:    Vec3{X: 1},
		FSVec:    Vec3{X: -1},
		SSPixels: 4,
		FSPixels: 4,
	}

	if _, err := f.Snap(); !errors.Is(err, ErrNonAxisAligned) {
		t.Fatalf("Snap() error = %v, want ErrNonAxisAligned", err)
	}
}

// TestSnapBoundingBoxWithinOnePixel checks the placement guarantee: the
// snapped rectangle tracks the floating-point outline of the tile to
// within one pixel on every side.
func TestSnapBoundingBoxWithinOnePixel(t *testing.T) {
	frags := []Fragment{
		{CornerPos: Vec3{X: 3.4, Y: 7.6}, SSVec: Vec3{Y: 1}, FSVec: Vec3{X: 1}, SSPixels: 32, FSPixels: 128},
		{CornerPos: Vec3{X: -12.5, Y: 625.5}, SSVec: Vec3{X: 1}, FSVec: Vec3{Y: -1}, SSPixels: 64, FSPixels: 128},
		{CornerPos: Vec3{X: 42.9, Y: -0.4}, SSVec: Vec3{X: 0.003, Y: -0.999}, FSVec: Vec3{X: -0.999, Y: -0.003}, SSPixels: 16, FSPixels: 64},
		{CornerPos: Vec3{X: 0.5, Y: 0.5}, SSVec: Vec3{Y: 1.04}, FSVec: Vec3{X: 0.97}, SSPixels: 8, FSPixels: 8},
	}

	for i, f := range frags {
		g, err := f.Snap()
		if err != nil {
			t.Fatalf("fragment %d: Snap() error: %v", i, err)
		}

		minRow, minCol := math.Inf(1), math.Inf(1)
		maxRow, maxCol := math.Inf(-1), math.Inf(-1)
		for _, c := range f.Corners() {
			minRow = math.Min(minRow, c.Y)
			maxRow = math.Max(maxRow, c.Y)
			minCol = math.Min(minCol, c.X)
			maxCol = math.Max(maxCol, c.X)
		}

		checks := []struct {
			name  string
			got   int
			float float64
		}{
			{"min row", g.CornerIdx[0], minRow},
			{"min col", g.CornerIdx[1], minCol},
			{"max row", g.OppCornerIdx[0], maxRow},
			{"max col", g.OppCornerIdx[1], maxCol},
		}
		for _, c := range checks {
			if d := math.Abs(float64(c.got) - c.float); d > 1 {
				t.Errorf("fragment %d: snapped %s %d is %.3f px from outline %.3f", i, c.name, c.got, d, c.float)
			}
		}
	}
}
