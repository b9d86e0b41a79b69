package detector

import (
	"fmt"
	"io"
	"sync"

	"github.com/detgeom/detgeom/internal/assemble"
	"github.com/detgeom/detgeom/internal/crystfel"
	"github.com/detgeom/detgeom/internal/geom"
	"github.com/detgeom/detgeom/internal/tensor"
	"github.com/detgeom/detgeom/internal/version"
)

// QuadModules is the number of modules in one quadrant. Both supported
// families arrange their sixteen modules as four quadrants of four.
const QuadModules = 4

// Spec holds the fixed constants of one detector family. Extents are in
// pixels; PixelSize is the pixel edge length in metres.
type Spec struct {
	Name           string
	Modules        int
	TilesPerModule int
	TileSS         int // slow-scan pixels per tile
	TileFS         int // fast-scan pixels per tile
	RawSS          int // slow-scan pixels per module of raw data
	RawFS          int // fast-scan pixels per module of raw data
	PixelSize      float64
}

// RawShape returns the trailing axes expected of raw data arrays:
// (modules, slow-scan, fast-scan).
func (s Spec) RawShape() [3]int {
	return [3]int{s.Modules, s.RawSS, s.RawFS}
}

// Geometry places every tile of one detector instance. Positions are in
// pixel units relative to the beam centre; multiply by Spec.PixelSize
// for metres.
//
// A Geometry is immutable once built and safe for concurrent use. The
// snapped layout is computed on first use and shared by all later
// calls, so repeated assembly never re-runs the snap.
type Geometry struct {
	spec    Spec
	modules [][]geom.Fragment // [module][tile]
	blocks  []assemble.TileBlock

	layoutOnce sync.Once
	layout     *assemble.Layout
	layoutErr  error
}

func newGeometry(spec Spec, modules [][]geom.Fragment, blocks []assemble.TileBlock) (*Geometry, error) {
	if len(modules) != spec.Modules {
		return nil, fmt.Errorf("%s: got %d modules, want %d", spec.Name, len(modules), spec.Modules)
	}
	if len(blocks) != spec.TilesPerModule {
		return nil, fmt.Errorf("%s: got %d raw blocks, want %d", spec.Name, len(blocks), spec.TilesPerModule)
	}
	for m, tiles := range modules {
		if len(tiles) != spec.TilesPerModule {
			return nil, fmt.Errorf("%s: module %d has %d tiles, want %d", spec.Name, m, len(tiles), spec.TilesPerModule)
		}
		for t, f := range tiles {
			if f.SSPixels != spec.TileSS || f.FSPixels != spec.TileFS {
				return nil, fmt.Errorf("%s: module %d tile %d is %dx%d px, want %dx%d",
					spec.Name, m, t, f.SSPixels, f.FSPixels, spec.TileSS, spec.TileFS)
			}
		}
	}
	return &Geometry{spec: spec, modules: modules, blocks: blocks}, nil
}

// Spec returns the detector family constants.
func (g *Geometry) Spec() Spec {
	return g.spec
}

// Fragment returns the laboratory-frame placement of one tile.
func (g *Geometry) Fragment(module, tile int) geom.Fragment {
	return g.modules[module][tile]
}

// TileBlock returns the raw-data window of one tile; the split is the
// same for every module.
func (g *Geometry) TileBlock(tile int) assemble.TileBlock {
	return g.blocks[tile]
}

// Offset returns a copy of the geometry with every tile moved by delta
// pixels. The copy starts with a fresh layout cache.
func (g *Geometry) Offset(delta geom.Vec3) *Geometry {
	moved := make([][]geom.Fragment, len(g.modules))
	for m, tiles := range g.modules {
		moved[m] = make([]geom.Fragment, len(tiles))
		for t, f := range tiles {
			moved[m][t] = f.Offset(delta)
		}
	}
	return &Geometry{spec: g.spec, modules: moved, blocks: g.blocks}
}

// SnappedLayout returns the shared fast-assembly layout, snapping every
// tile on first call. Callers all see the same layout, or the same
// error for a geometry that cannot snap.
func (g *Geometry) SnappedLayout() (*assemble.Layout, error) {
	g.layoutOnce.Do(func() {
		g.layout, g.layoutErr = assemble.NewLayout(g.modules, g.blocks, g.spec.RawSS, g.spec.RawFS)
	})
	return g.layout, g.layoutErr
}

// AssembleFast places raw data onto a sentinel-filled canvas using the
// snapped layout. The returned offset is the canvas (row, col) of the
// geometry origin.
func (g *Geometry) AssembleFast(data *tensor.Array) (*tensor.Array, [2]int, error) {
	l, err := g.SnappedLayout()
	if err != nil {
		return nil, [2]int{}, err
	}
	return l.Assemble(data)
}

// AssembleAccurate resamples raw data with the exact tile orientations.
// It handles the tilted geometries the snapped layout rejects, at
// interpolation cost per frame.
func (g *Geometry) AssembleAccurate(data *tensor.Array) (*tensor.Array, [2]int, error) {
	a, err := assemble.NewAccurate(g.modules, g.blocks, g.spec.RawSS, g.spec.RawFS)
	if err != nil {
		return nil, [2]int{}, err
	}
	return a.Assemble(data)
}

// WriteCrystFEL writes the geometry as a CrystFEL description. Corner
// positions and scan vectors are in pixel units; coffset carries the
// out-of-plane corner component unchanged.
func (g *Geometry) WriteCrystFEL(w io.Writer) error {
	hdr := crystfel.Header{
		Comments: []string{
			fmt.Sprintf("%s geometry file written by detgeom %s", g.spec.Name, version.Version),
			"You may need to edit this file to add:",
			" - data and mask locations in the file",
			" - mask_good & mask_bad values in the file",
			" - adu_per_eV & photon_energy",
			" - clen (detector distance)",
			"",
			"See: http://www.desy.de/~twhite/crystfel/manual-crystfel_geometry.html",
		},
		PixelSize:      g.spec.PixelSize,
		Modules:        g.spec.Modules,
		TilesPerModule: g.spec.TilesPerModule,
	}

	panels := make([]crystfel.Panel, 0, g.spec.Modules*g.spec.TilesPerModule)
	for m, tiles := range g.modules {
		for t, f := range tiles {
			blk := g.blocks[t]
			panels = append(panels, crystfel.Panel{
				Module:  m,
				Tile:    t,
				MinSS:   blk.SSOff,
				MaxSS:   blk.SSOff + blk.SSLen - 1,
				MinFS:   blk.FSOff,
				MaxFS:   blk.FSOff + blk.FSLen - 1,
				SS:      [3]float64{f.SSVec.X, f.SSVec.Y, f.SSVec.Z},
				FS:      [3]float64{f.FSVec.X, f.FSVec.Y, f.FSVec.Z},
				CornerX: f.CornerPos.X,
				CornerY: f.CornerPos.Y,
				Coffset: f.CornerPos.Z,
			})
		}
	}
	return crystfel.Write(w, hdr, panels)
}

// geometryFromCrystFEL rebuilds a geometry of the given family from a
// parsed description. Panel windows must reproduce the family's raw
// data split exactly.
func geometryFromCrystFEL(spec Spec, blocks []assemble.TileBlock, r io.Reader) (*Geometry, error) {
	f, err := crystfel.Parse(r)
	if err != nil {
		return nil, err
	}
	if got, want := len(f.Panels), spec.Modules*spec.TilesPerModule; got != want {
		return nil, fmt.Errorf("%s: geometry file has %d panels, want %d", spec.Name, got, want)
	}

	modules := make([][]geom.Fragment, spec.Modules)
	for m := range modules {
		modules[m] = make([]geom.Fragment, spec.TilesPerModule)
	}
	for _, p := range f.Panels {
		if p.Module < 0 || p.Module >= spec.Modules || p.Tile < 0 || p.Tile >= spec.TilesPerModule {
			return nil, fmt.Errorf("%s: unexpected panel %s", spec.Name, p.Name())
		}
		blk := blocks[p.Tile]
		if p.MinSS != blk.SSOff || p.MaxSS != blk.SSOff+blk.SSLen-1 ||
			p.MinFS != blk.FSOff || p.MaxFS != blk.FSOff+blk.FSLen-1 {
			return nil, fmt.Errorf("%s: panel %s window (ss %d..%d, fs %d..%d) does not match the raw data split",
				spec.Name, p.Name(), p.MinSS, p.MaxSS, p.MinFS, p.MaxFS)
		}
		modules[p.Module][p.Tile] = geom.Fragment{
			CornerPos: geom.Vec3{X: p.CornerX, Y: p.CornerY, Z: p.Coffset},
			SSVec:     geom.Vec3{X: p.SS[0], Y: p.SS[1], Z: p.SS[2]},
			FSVec:     geom.Vec3{X: p.FS[0], Y: p.FS[1], Z: p.FS[2]},
			SSPixels:  p.SSPixels(),
			FSPixels:  p.FSPixels(),
		}
	}
	return newGeometry(spec, modules, blocks)
}
