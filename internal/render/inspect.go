package render

import (
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/detgeom/detgeom/internal/detector"
	"github.com/detgeom/detgeom/internal/geom"
)

var (
	// tileFill is the face colour of tile outlines in layout plots.
	tileFill = color.RGBA{R: 191, G: 255, B: 191, A: 255}
	tileEdge = color.RGBA{R: 96, G: 160, B: 96, A: 255}
	// crossGrey marks the beam centre on layout plots.
	crossGrey = color.RGBA{R: 191, G: 191, B: 191, A: 255}
	// shiftBlue draws the displacement segments on comparison plots.
	shiftBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// Inspect plots the 2D layout of a geometry: one polygon per tile, the
// first and last tile of each module labelled with the tile index, the
// middle tile with the module name, and a grey cross at the beam
// centre. Axes are in pixel units.
func Inspect(g *detector.Geometry) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s detector geometry", g.Spec().Name)
	p.X.Label.Text = "pixels"
	p.Y.Label.Text = "pixels"

	if err := addTiles(p, g); err != nil {
		return nil, err
	}
	if err := addCentreCross(p, 100, crossGrey, vg.Points(2)); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveInspection writes the layout plot of g to path. The image format
// follows the file extension.
func SaveInspection(g *detector.Geometry, path string) error {
	p, err := Inspect(g)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save layout plot: %w", err)
	}
	return nil
}

// Compare plots the layout of a with a segment from each tile corner to
// the matching corner in b, showing how the tiles move between the two
// geometries. Tiles that do not move draw no segment. Both geometries
// must share a module and tile arrangement.
func Compare(a, b *detector.Geometry) (*plot.Plot, error) {
	as, bs := a.Spec(), b.Spec()
	if as.Modules != bs.Modules || as.TilesPerModule != bs.TilesPerModule {
		return nil, fmt.Errorf("compare %s with %s: tile arrangements differ", as.Name, bs.Name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s geometry comparison", as.Name)
	p.X.Label.Text = "pixels"
	p.Y.Label.Text = "pixels"

	if err := addTiles(p, a); err != nil {
		return nil, err
	}
	for m := 0; m < as.Modules; m++ {
		for t := 0; t < as.TilesPerModule; t++ {
			ca := a.Fragment(m, t).Corners()
			cb := b.Fragment(m, t).Corners()
			// The readout corner and its opposite pin each tile;
			// together they show shift and rotation.
			for _, i := range [2]int{0, 2} {
				if err := addShift(p, ca[i], cb[i]); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := addCentreCross(p, 100, crossGrey, vg.Points(2)); err != nil {
		return nil, err
	}
	return p, nil
}

// addTiles draws every tile polygon of g onto p and labels the first,
// middle and last tile of each module.
func addTiles(p *plot.Plot, g *detector.Geometry) error {
	spec := g.Spec()
	pts := make(plotter.XYs, 0, spec.Modules*3)
	texts := make([]string, 0, spec.Modules*3)

	for m := 0; m < spec.Modules; m++ {
		for t := 0; t < spec.TilesPerModule; t++ {
			f := g.Fragment(m, t)
			poly, err := tilePolygon(f)
			if err != nil {
				return err
			}
			p.Add(poly)

			switch t {
			case 0, spec.TilesPerModule - 1:
				c := f.Centre()
				pts = append(pts, plotter.XY{X: c.X, Y: c.Y})
				texts = append(texts, strconv.Itoa(t))
			case spec.TilesPerModule / 2:
				c := f.Centre()
				pts = append(pts, plotter.XY{X: c.X, Y: c.Y})
				texts = append(texts, fmt.Sprintf("p%d", m))
			}
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: texts})
	if err != nil {
		return err
	}
	p.Add(labels)
	return nil
}

// tilePolygon builds the filled outline of one tile.
func tilePolygon(f geom.Fragment) (*plotter.Polygon, error) {
	corners := f.Corners()
	ring := make(plotter.XYs, len(corners))
	for i, c := range corners {
		ring[i] = plotter.XY{X: c.X, Y: c.Y}
	}
	poly, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, err
	}
	poly.Color = tileFill
	poly.LineStyle.Color = tileEdge
	poly.LineStyle.Width = vg.Points(0.5)
	return poly, nil
}

// addShift draws one displacement segment, skipping zero moves.
func addShift(p *plot.Plot, from, to geom.Vec3) error {
	if from.X == to.X && from.Y == to.Y {
		return nil
	}
	seg, err := plotter.NewLine(plotter.XYs{{X: from.X, Y: from.Y}, {X: to.X, Y: to.Y}})
	if err != nil {
		return err
	}
	seg.Color = shiftBlue
	seg.Width = vg.Points(2)
	p.Add(seg)
	return nil
}

// addCentreCross marks the beam position with two lines spanning
// ±size on each axis.
func addCentreCross(p *plot.Plot, size float64, col color.Color, width vg.Length) error {
	h, err := plotter.NewLine(plotter.XYs{{X: -size, Y: 0}, {X: size, Y: 0}})
	if err != nil {
		return err
	}
	v, err := plotter.NewLine(plotter.XYs{{X: 0, Y: -size}, {X: 0, Y: size}})
	if err != nil {
		return err
	}
	h.Color = col
	h.Width = width
	v.Color = col
	v.Width = width
	p.Add(h, v)
	return nil
}
