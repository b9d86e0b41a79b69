package render

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/detgeom/detgeom/internal/detector"
	"github.com/detgeom/detgeom/internal/geom"
	"github.com/detgeom/detgeom/internal/tensor"
	"github.com/detgeom/detgeom/internal/testutil"
	"github.com/detgeom/detgeom/internal/units"
)

// renderQuads is a realistic AGIPD-1M quadrant arrangement, in pixel
// units relative to the beam centre. The quadrants do not overlap, so
// every raw pixel lands on its own canvas pixel.
var renderQuads = [4][2]float64{
	{-525, 625},
	{-550, -10},
	{520, -160},
	{542.5, 475},
}

func renderGeometry(t *testing.T) *detector.Geometry {
	t.Helper()
	g, err := detector.AGIPD1MFromQuadPositions(renderQuads,
		detector.AGIPD1MDefaultASICGap, detector.AGIPD1MDefaultPanelGap)
	testutil.AssertNoError(t, err)
	return g
}

// moduleIndexData builds a raw frame where every pixel of module m
// holds the value m.
func moduleIndexData(g *detector.Geometry) *tensor.Array {
	rs := g.Spec().RawShape()
	data := tensor.New(rs[0], rs[1], rs[2])
	raw := data.Data()
	frame := rs[1] * rs[2]
	for m := 0; m < rs[0]; m++ {
		for i := 0; i < frame; i++ {
			raw[m*frame+i] = float32(m)
		}
	}
	return data
}

func rgbaOf(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestShadeClampsToGradientStops(t *testing.T) {
	if got := shade(0); got != color.Color(gradientStops[0]) {
		t.Errorf("shade(0) = %v, want first stop", got)
	}
	if got := shade(1); got != color.Color(gradientStops[2]) {
		t.Errorf("shade(1) = %v, want last stop", got)
	}
	if got := shade(-0.3); got != color.Color(gradientStops[0]) {
		t.Errorf("shade(-0.3) = %v, want first stop", got)
	}
	if got := shade(1.7); got != color.Color(gradientStops[2]) {
		t.Errorf("shade(1.7) = %v, want last stop", got)
	}

	// Half way along the gradient sits exactly on the middle stop.
	mid, ok := shade(0.5).(colorful.Color)
	if !ok {
		t.Fatalf("shade(0.5) returned %T, want colorful.Color", shade(0.5))
	}
	mr, mg, mb := mid.RGB255()
	wr, wg, wb := gradientStops[1].RGB255()
	if mr != wr || mg != wg || mb != wb {
		t.Errorf("shade(0.5) = (%d, %d, %d), want (%d, %d, %d)", mr, mg, mb, wr, wg, wb)
	}
}

func TestRenderFrameRejectsInvalidUnits(t *testing.T) {
	g := renderGeometry(t)
	data := moduleIndexData(g)

	_, _, err := RenderFrame(g, data, units.Unit("furlong"))
	testutil.AssertError(t, err)
	if !errors.Is(err, units.ErrInvalidUnit) {
		t.Errorf("error = %v, want ErrInvalidUnit", err)
	}
	var iue *units.InvalidUnitError
	if !errors.As(err, &iue) {
		t.Fatalf("error type = %T, want *InvalidUnitError", err)
	}
	if iue.Value != "furlong" {
		t.Errorf("error Value = %q, want %q", iue.Value, "furlong")
	}
}

func TestRenderFrameRejectsBatchedData(t *testing.T) {
	g := renderGeometry(t)
	rs := g.Spec().RawShape()

	_, _, err := RenderFrame(g, tensor.New(2, rs[0], rs[1], rs[2]), units.Pixels)
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "single frame") {
		t.Errorf("error = %v, want single frame complaint", err)
	}
}

func TestRenderFrameCoversCanvas(t *testing.T) {
	g := renderGeometry(t)
	rs := g.Spec().RawShape()
	data := tensor.New(rs[0], rs[1], rs[2])

	img, centre, err := RenderFrame(g, data, units.Pixels)
	testutil.AssertNoError(t, err)

	layout, err := g.SnappedLayout()
	testutil.AssertNoError(t, err)
	size := layout.Size()
	if img.Bounds().Dx() != size[1] || img.Bounds().Dy() != size[0] {
		t.Fatalf("image is %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), size[1], size[0])
	}
	if centre != layout.Centre() {
		t.Errorf("centre = %v, want %v", centre, layout.Centre())
	}

	// A zero frame paints every placed pixel with the first gradient
	// stop and every gap with the sentinel grey, one canvas pixel per
	// raw pixel.
	grey := rgbaOf(sentinelGrey)
	placed := rgbaOf(shade(0))
	greyCount, placedCount := 0, 0
	for y := 0; y < size[0]; y++ {
		for x := 0; x < size[1]; x++ {
			switch rgbaOf(img.At(x, y)) {
			case grey:
				greyCount++
			case placed:
				placedCount++
			}
		}
	}
	rawPixels := rs[0] * rs[1] * rs[2]
	if placedCount != rawPixels {
		t.Errorf("placed pixels = %d, want %d", placedCount, rawPixels)
	}
	if greyCount != size[0]*size[1]-rawPixels {
		t.Errorf("grey pixels = %d, want %d", greyCount, size[0]*size[1]-rawPixels)
	}
}

func TestRenderFrameSpansGradient(t *testing.T) {
	g := renderGeometry(t)
	data := moduleIndexData(g)

	img, centre, err := RenderFrame(g, data, units.Pixels)
	testutil.AssertNoError(t, err)

	layout, err := g.SnappedLayout()
	testutil.AssertNoError(t, err)
	rows := layout.Size()[0]

	// Module 0 holds the frame minimum, module 15 the maximum; their
	// tiles map to the gradient ends. Canvas rows flip into image rows.
	for _, tc := range []struct {
		module int
		want   colorful.Color
	}{
		{0, gradientStops[0]},
		{15, gradientStops[2]},
	} {
		pl := layout.Placement(tc.module, 0)
		row := pl.CornerIdx[0] + centre[0]
		col := pl.CornerIdx[1] + centre[1]
		got := rgbaOf(img.At(col, rows-1-row))
		if want := rgbaOf(tc.want); got != want {
			t.Errorf("module %d corner pixel = %v, want %v", tc.module, got, want)
		}
	}
}

func TestInspectLayoutPlot(t *testing.T) {
	g := renderGeometry(t)

	p, err := Inspect(g)
	testutil.AssertNoError(t, err)
	if p.Title.Text != "AGIPD-1M detector geometry" {
		t.Errorf("title = %q", p.Title.Text)
	}
	if p.X.Label.Text != "pixels" || p.Y.Label.Text != "pixels" {
		t.Errorf("axis labels = %q, %q, want pixels", p.X.Label.Text, p.Y.Label.Text)
	}
}

func TestCompareGeometries(t *testing.T) {
	g := renderGeometry(t)

	// Comparing a geometry with itself draws no shift segments but
	// still succeeds.
	p, err := Compare(g, g)
	testutil.AssertNoError(t, err)
	if p == nil {
		t.Fatal("Compare returned nil plot")
	}

	moved := g.Offset(geom.Vec3{X: 12, Y: -8})
	p, err = Compare(g, moved)
	testutil.AssertNoError(t, err)
	if p.Title.Text != "AGIPD-1M geometry comparison" {
		t.Errorf("title = %q", p.Title.Text)
	}
}

func TestCompareRejectsMismatchedArrangements(t *testing.T) {
	agipd := renderGeometry(t)
	lpd, err := detector.LPD1MFromQuadPositions([4][2]float64{
		{22.8, 598}, {-23, 16}, {509, -32}, {557, 550},
	}, detector.LPD1MDefaultASICGap, detector.LPD1MDefaultPanelGap)
	testutil.AssertNoError(t, err)

	_, err = Compare(agipd, lpd)
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "tile arrangements differ") {
		t.Errorf("error = %v", err)
	}
}

func TestSavePlotsToFiles(t *testing.T) {
	g := renderGeometry(t)
	dir := t.TempDir()

	layoutPath := filepath.Join(dir, "layout.png")
	testutil.AssertNoError(t, SaveInspection(g, layoutPath))
	assertNonEmptyFile(t, layoutPath)

	framePath := filepath.Join(dir, "frame.png")
	testutil.AssertNoError(t, SaveFrame(g, moduleIndexData(g), units.Metres, framePath))
	assertNonEmptyFile(t, framePath)
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	testutil.AssertNoError(t, err)
	if info.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}
