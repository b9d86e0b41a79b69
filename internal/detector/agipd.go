package detector

import (
	"io"

	"github.com/detgeom/detgeom/internal/assemble"
	"github.com/detgeom/detgeom/internal/geom"
)

// AGIPD-1M: 16 modules of 8 ASIC tiles each, read out as (16, 512, 128)
// with the tiles stacked along the slow-scan axis.
var agipd1M = Spec{
	Name:           "AGIPD-1M",
	Modules:        16,
	TilesPerModule: 8,
	TileSS:         64,
	TileFS:         128,
	RawSS:          512,
	RawFS:          128,
	PixelSize:      2e-4,
}

// Gap defaults for an idealised AGIPD-1M quadrant, in pixels.
const (
	AGIPD1MDefaultASICGap  = 2
	AGIPD1MDefaultPanelGap = 29
)

// AGIPD1MSpec returns the AGIPD-1M family constants.
func AGIPD1MSpec() Spec { return agipd1M }

func agipd1MBlocks() []assemble.TileBlock {
	blocks := make([]assemble.TileBlock, agipd1M.TilesPerModule)
	for a := range blocks {
		blocks[a] = assemble.TileBlock{SSOff: a * agipd1M.TileSS, SSLen: agipd1M.TileSS, FSLen: agipd1M.TileFS}
	}
	return blocks
}

// NewAGIPD1M builds an AGIPD-1M geometry from explicit tile placements,
// indexed [module][tile] with 16 modules of 8 tiles each.
func NewAGIPD1M(modules [][]geom.Fragment) (*Geometry, error) {
	return newGeometry(agipd1M, modules, agipd1MBlocks())
}

// AGIPD1MFromQuadPositions generates an idealised AGIPD-1M geometry from
// four quadrant positions, given in pixel units as the (x, y) of the
// first pixel of the first module in each quadrant. Modules within a
// quadrant are flat, aligned and evenly spaced; gaps are in pixels.
func AGIPD1MFromQuadPositions(quads [4][2]float64, asicGap, panelGap float64) (*Geometry, error) {
	// Quadrants 1-2 orient tiles +x with fast scan -y; quadrants 3-4
	// are rotated 180 degrees.
	xOrient := [4]float64{1, 1, -1, -1}
	yOrient := [4]float64{-1, -1, 1, 1}

	modules := make([][]geom.Fragment, agipd1M.Modules)
	for p := range modules {
		quad := p / QuadModules
		xo, yo := xOrient[quad], yOrient[quad]
		cornerY := quads[quad][1] - float64(p%QuadModules)*(float64(agipd1M.TileFS)+panelGap)

		tiles := make([]geom.Fragment, agipd1M.TilesPerModule)
		for a := range tiles {
			cornerX := quads[quad][0] + xo*(float64(agipd1M.TileSS)+asicGap)*float64(a)
			tiles[a] = geom.Fragment{
				CornerPos: geom.Vec3{X: cornerX, Y: cornerY},
				SSVec:     geom.Vec3{X: xo},
				FSVec:     geom.Vec3{Y: yo},
				SSPixels:  agipd1M.TileSS,
				FSPixels:  agipd1M.TileFS,
			}
		}
		modules[p] = tiles
	}
	return NewAGIPD1M(modules)
}

// AGIPD1MFromCrystFEL reads an AGIPD-1M geometry from a CrystFEL
// description.
func AGIPD1MFromCrystFEL(r io.Reader) (*Geometry, error) {
	return geometryFromCrystFEL(agipd1M, agipd1MBlocks(), r)
}
