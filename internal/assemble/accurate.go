package assemble

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/detgeom/detgeom/internal/geom"
	"github.com/detgeom/detgeom/internal/tensor"
)

// Accurate assembles through an inverse affine map per tile instead of
// block copies. It handles tiles at any orientation, including ones that
// cannot snap, at the cost of resampling every canvas pixel a tile
// covers. Results are deterministic; overlapping tiles combine by
// sentinel-ignoring maximum.
type Accurate struct {
	modules int
	blocks  []TileBlock
	rawSS   int
	rawFS   int
	size    [2]int
	centre  [2]int
	tiles   []accTile
}

// accTile carries the per-tile resampling parameters. fwd is the 2x2
// matrix whose columns are the (row, col) components of the scan
// vectors; inv is its inverse, mapping canvas displacements back to
// fractional (ss, fs) tile coordinates.
type accTile struct {
	fwd      [4]float64 // row-major: (drow, dcol) = fwd * (ss, fs)
	inv      [4]float64 // row-major: (ss, fs) = inv * (drow, dcol)
	corner   [2]float64 // readout corner, geometry (row, col)
	ssPixels int
	fsPixels int
	block    TileBlock
}

// NewAccurate prepares the interpolating assembler. The canvas is sized
// from the floating-point tile outlines with a one-pixel margin. Tiles
// with linearly dependent scan vectors are rejected.
func NewAccurate(frags [][]geom.Fragment, blocks []TileBlock, rawSS, rawFS int) (*Accurate, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("accurate: no modules")
	}

	minRow, minCol := math.Inf(1), math.Inf(1)
	maxRow, maxCol := math.Inf(-1), math.Inf(-1)
	for _, tiles := range frags {
		for _, f := range tiles {
			for _, c := range f.Corners() {
				minRow = math.Min(minRow, c.Y)
				maxRow = math.Max(maxRow, c.Y)
				minCol = math.Min(minCol, c.X)
				maxCol = math.Max(maxCol, c.X)
			}
		}
	}
	// One pixel of margin tolerates rounding at the outline.
	lowRow, lowCol := int(minRow)-1, int(minCol)-1
	highRow, highCol := int(maxRow)+1, int(maxCol)+1

	a := &Accurate{
		modules: len(frags),
		blocks:  blocks,
		rawSS:   rawSS,
		rawFS:   rawFS,
		size:    [2]int{highRow - lowRow, highCol - lowCol},
		centre:  [2]int{-lowRow, -lowCol},
	}

	for m, tiles := range frags {
		if len(tiles) != len(blocks) {
			return nil, fmt.Errorf("accurate: module %d has %d tiles, split has %d blocks", m, len(tiles), len(blocks))
		}
		for t, f := range tiles {
			blk := blocks[t]
			if blk.SSLen != f.SSPixels || blk.FSLen != f.FSPixels {
				return nil, fmt.Errorf("accurate: module %d tile %d is %dx%d px, split block is %dx%d",
					m, t, f.SSPixels, f.FSPixels, blk.SSLen, blk.FSLen)
			}

			fwd := mat.NewDense(2, 2, []float64{
				f.SSVec.Y, f.FSVec.Y,
				f.SSVec.X, f.FSVec.X,
			})
			var inv mat.Dense
			if err := inv.Inverse(fwd); err != nil {
				return nil, fmt.Errorf("accurate: module %d tile %d orientation is singular: %w", m, t, err)
			}

			a.tiles = append(a.tiles, accTile{
				fwd: [4]float64{
					f.SSVec.Y, f.FSVec.Y,
					f.SSVec.X, f.FSVec.X,
				},
				inv: [4]float64{
					inv.At(0, 0), inv.At(0, 1),
					inv.At(1, 0), inv.At(1, 1),
				},
				corner:   [2]float64{f.CornerPos.Y, f.CornerPos.X},
				ssPixels: f.SSPixels,
				fsPixels: f.FSPixels,
				block:    blk,
			})
		}
	}
	return a, nil
}

// Size returns the canvas extent in (rows, cols).
func (a *Accurate) Size() [2]int {
	return a.size
}

// Centre returns the canvas (row, col) of the geometry origin.
func (a *Accurate) Centre() [2]int {
	return a.centre
}

// Assemble resamples raw detector data onto sentinel-filled canvases.
// Shape handling matches Layout.Assemble: trailing axes must equal
// (modules, rawSS, rawFS), leading batch axes are preserved.
func (a *Accurate) Assemble(data *tensor.Array) (*tensor.Array, [2]int, error) {
	batch, frames, err := splitBatch(data, a.modules, a.rawSS, a.rawFS)
	if err != nil {
		return nil, [2]int{}, err
	}

	out := tensor.Full(tensor.Sentinel, append(batch, a.size[0], a.size[1])...)
	frameIn := a.modules * a.rawSS * a.rawFS
	frameOut := a.size[0] * a.size[1]
	src := data.Data()
	dst := out.Data()

	for f := 0; f < frames; f++ {
		a.assembleFrame(dst[f*frameOut:(f+1)*frameOut], src[f*frameIn:(f+1)*frameIn])
	}
	return out, a.centre, nil
}

func (a *Accurate) assembleFrame(dst, src []float32) {
	moduleLen := a.rawSS * a.rawFS
	tilesPerModule := len(a.blocks)
	for i, tile := range a.tiles {
		module := src[(i/tilesPerModule)*moduleLen:]
		a.resampleTile(dst, module, tile)
	}
}

// resampleTile maps each canvas pixel in the tile's bounding box back
// into tile coordinates and bilinearly samples the raw block. Canvas
// pixels already holding a larger value keep it.
func (a *Accurate) resampleTile(dst, module []float32, tile accTile) {
	cr := tile.corner[0] + float64(a.centre[0])
	cc := tile.corner[1] + float64(a.centre[1])

	// Bounding box of the tile outline on the canvas, padded one pixel
	// for the bilinear support.
	ssf, fsf := float64(tile.ssPixels), float64(tile.fsPixels)
	minR, maxR := math.Inf(1), math.Inf(-1)
	minC, maxC := math.Inf(1), math.Inf(-1)
	for _, e := range [4][2]float64{{0, 0}, {ssf, 0}, {0, fsf}, {ssf, fsf}} {
		r := cr + e[0]*tile.fwd[0] + e[1]*tile.fwd[1]
		c := cc + e[0]*tile.fwd[2] + e[1]*tile.fwd[3]
		minR, maxR = math.Min(minR, r), math.Max(maxR, r)
		minC, maxC = math.Min(minC, c), math.Max(maxC, c)
	}

	r0 := clampInt(int(math.Floor(minR))-1, 0, a.size[0])
	r1 := clampInt(int(math.Ceil(maxR))+1, 0, a.size[0])
	c0 := clampInt(int(math.Floor(minC))-1, 0, a.size[1])
	c1 := clampInt(int(math.Ceil(maxC))+1, 0, a.size[1])

	for r := r0; r < r1; r++ {
		drow := float64(r) - cr
		for c := c0; c < c1; c++ {
			dcol := float64(c) - cc
			ss := tile.inv[0]*drow + tile.inv[1]*dcol
			fs := tile.inv[2]*drow + tile.inv[3]*dcol
			if ss < -0.5 || ss > ssf-0.5 || fs < -0.5 || fs > fsf-0.5 {
				continue
			}

			v := bilinear(module, a.rawFS, tile, ss, fs)
			if math.IsNaN(v) {
				continue
			}
			idx := r*a.size[1] + c
			if cur := dst[idx]; tensor.IsSentinel(cur) || float32(v) > cur {
				dst[idx] = float32(v)
			}
		}
	}
}

// bilinear samples the tile's raw block at fractional (ss, fs),
// clamping the half-pixel border to the edge pixels.
func bilinear(module []float32, rawFS int, tile accTile, ss, fs float64) float64 {
	ss = math.Max(0, math.Min(ss, float64(tile.ssPixels-1)))
	fs = math.Max(0, math.Min(fs, float64(tile.fsPixels-1)))

	s0 := int(ss)
	f0 := int(fs)
	s1, f1 := s0+1, f0+1
	if s1 > tile.ssPixels-1 {
		s1 = tile.ssPixels - 1
	}
	if f1 > tile.fsPixels-1 {
		f1 = tile.fsPixels - 1
	}
	ws := ss - float64(s0)
	wf := fs - float64(f0)

	base := tile.block.SSOff*rawFS + tile.block.FSOff
	p00 := float64(module[base+s0*rawFS+f0])
	p01 := float64(module[base+s0*rawFS+f1])
	p10 := float64(module[base+s1*rawFS+f0])
	p11 := float64(module[base+s1*rawFS+f1])

	return (1-ws)*((1-wf)*p00+wf*p01) + ws*((1-wf)*p10+wf*p11)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
