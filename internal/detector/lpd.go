package detector

import (
	"io"

	"github.com/detgeom/detgeom/internal/assemble"
	"github.com/detgeom/detgeom/internal/geom"
)

// LPD-1M: 16 supermodules of 16 tiles each, read out as (16, 256, 256)
// with two columns of eight tiles side by side along the fast-scan axis.
var lpd1M = Spec{
	Name:           "LPD-1M",
	Modules:        16,
	TilesPerModule: 16,
	TileSS:         32,
	TileFS:         128,
	RawSS:          256,
	RawFS:          256,
	PixelSize:      5e-4,
}

// Gap defaults for an idealised LPD-1M quadrant, in pixels.
const (
	LPD1MDefaultASICGap  = 4
	LPD1MDefaultPanelGap = 4
)

// LPD1MSpec returns the LPD-1M family constants.
func LPD1MSpec() Spec { return lpd1M }

// lpd1MBlocks maps tiles to raw data windows. Tiles 0-7 fill the left
// data column numbered top to bottom while the readout starts at the
// bottom, so their slow-scan offsets run in reverse; tiles 8-15 fill
// the right column in readout order.
func lpd1MBlocks() []assemble.TileBlock {
	blocks := make([]assemble.TileBlock, lpd1M.TilesPerModule)
	for a := range blocks {
		if a < 8 {
			blocks[a] = assemble.TileBlock{SSOff: (7 - a) * lpd1M.TileSS, SSLen: lpd1M.TileSS, FSLen: lpd1M.TileFS}
		} else {
			blocks[a] = assemble.TileBlock{SSOff: (a - 8) * lpd1M.TileSS, FSOff: lpd1M.TileFS, SSLen: lpd1M.TileSS, FSLen: lpd1M.TileFS}
		}
	}
	return blocks
}

// NewLPD1M builds an LPD-1M geometry from explicit tile placements,
// indexed [module][tile] with 16 modules of 16 tiles each.
func NewLPD1M(modules [][]geom.Fragment) (*Geometry, error) {
	return newGeometry(lpd1M, modules, lpd1MBlocks())
}

// LPD1MFromQuadPositions generates an idealised LPD-1M geometry from
// four quadrant positions, given in pixel units as the top-left corner
// of each quadrant looking into the beam. That corner belongs to the
// quadrant's first module and tile, not to the start of its readout.
func LPD1MFromQuadPositions(quads [4][2]float64, asicGap, panelGap float64) (*Geometry, error) {
	panelsAcross := [4]float64{0, 0, 1, 1}
	panelsUp := [4]float64{0, -1, -1, 0}

	ssf := float64(lpd1M.TileSS)
	fsf := float64(lpd1M.TileFS)

	modules := make([][]geom.Fragment, lpd1M.Modules)
	for p := range modules {
		quad := p / QuadModules
		panelX := quads[quad][0] + panelsAcross[p%QuadModules]*(2*fsf+asicGap+panelGap)
		panelY := quads[quad][1] + panelsUp[p%QuadModules]*(8*ssf+7*asicGap+panelGap)

		tiles := make([]geom.Fragment, lpd1M.TilesPerModule)
		for a := range tiles {
			var up, across float64
			if a < 8 {
				up, across = -float64(a), 0
			} else {
				up, across = -float64(15-a), 1
			}

			cornerX := panelX + (fsf+asicGap)*across
			// Panel corners are top-left, but the first pixel read out
			// is a tile's bottom-left, one tile height lower.
			cornerY := panelY - ssf + (ssf+asicGap)*up

			tiles[a] = geom.Fragment{
				CornerPos: geom.Vec3{X: cornerX, Y: cornerY},
				SSVec:     geom.Vec3{Y: 1},
				FSVec:     geom.Vec3{X: 1},
				SSPixels:  lpd1M.TileSS,
				FSPixels:  lpd1M.TileFS,
			}
		}
		modules[p] = tiles
	}
	return NewLPD1M(modules)
}

// LPD1MFromCrystFEL reads an LPD-1M geometry from a CrystFEL
// description.
func LPD1MFromCrystFEL(r io.Reader) (*Geometry, error) {
	return geometryFromCrystFEL(lpd1M, lpd1MBlocks(), r)
}
