package render

import (
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/detgeom/detgeom/internal/detector"
	"github.com/detgeom/detgeom/internal/tensor"
	"github.com/detgeom/detgeom/internal/units"
)

// RenderFrame assembles one frame of raw module data and colormaps it.
// Finite values span the gradient between the frame's minimum and
// maximum; canvas pixels no tile covers come out grey. Canvas row 0
// sits at the bottom of the image so y increases upwards, matching the
// laboratory frame. The returned offset is the canvas (row, col) of
// the beam centre.
//
// axisUnits must name a valid display unit; anything else fails with a
// *units.InvalidUnitError before any assembly runs.
func RenderFrame(g *detector.Geometry, data *tensor.Array, axisUnits units.Unit) (image.Image, [2]int, error) {
	if !units.IsValid(axisUnits) {
		return nil, [2]int{}, &units.InvalidUnitError{Value: string(axisUnits)}
	}
	canvas, centre, err := g.AssembleFast(data)
	if err != nil {
		return nil, [2]int{}, err
	}
	if canvas.Rank() != 2 {
		return nil, [2]int{}, fmt.Errorf("render wants a single frame, got %d batch axes", canvas.Rank()-2)
	}

	lo, hi := frameRange(canvas)
	span := hi - lo
	if span == 0 {
		span = 1 // constant frames map to the low end of the gradient
	}

	rows, cols := canvas.Dim(0), canvas.Dim(1)
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		y := rows - 1 - r
		for c := 0; c < cols; c++ {
			v := canvas.At(r, c)
			if tensor.IsSentinel(v) {
				img.Set(c, y, sentinelGrey)
				continue
			}
			img.Set(c, y, shade((float64(v)-lo)/span))
		}
	}
	return img, centre, nil
}

// SaveFrame renders one frame of raw module data and writes it to path
// as a plot with axes in the requested units and a white cross at the
// beam centre.
func SaveFrame(g *detector.Geometry, data *tensor.Array, axisUnits units.Unit, path string) error {
	img, centre, err := RenderFrame(g, data, axisUnits)
	if err != nil {
		return err
	}

	// Pixel centres land on integer coordinates, so the image extends
	// half a pixel past the extreme indices on every side.
	scale := axisUnits.Scale(g.Spec().PixelSize)
	b := img.Bounds()
	minX := (-float64(centre[1]) - 0.5) * scale
	maxX := (float64(b.Dx()-centre[1]) + 0.5) * scale
	minY := (-float64(centre[0]) - 0.5) * scale
	maxY := (float64(b.Dy()-centre[0]) + 0.5) * scale

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s frame", g.Spec().Name)
	p.X.Label.Text = axisUnits.Label()
	p.Y.Label.Text = axisUnits.Label()
	p.Add(plotter.NewImage(img, minX, minY, maxX, maxY))

	if err := addCentreCross(p, 20*scale, color.White, vg.Points(1)); err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save frame plot: %w", err)
	}
	return nil
}

// frameRange scans the finite values of a canvas. A canvas with no
// finite values returns (0, 0).
func frameRange(canvas *tensor.Array) (lo, hi float64) {
	first := true
	for _, v := range canvas.Data() {
		if tensor.IsSentinel(v) {
			continue
		}
		f := float64(v)
		if first {
			lo, hi = f, f
			first = false
			continue
		}
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	return lo, hi
}
