package assemble

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/detgeom/detgeom/internal/geom"
	"github.com/detgeom/detgeom/internal/tensor"
)

// TileBlock locates one tile's pixels inside a module's raw data block.
// Detector models supply one block per tile, in tile order; the split is
// identical for every module of a detector.
type TileBlock struct {
	SSOff, FSOff int // tile origin within the raw (ss, fs) block
	SSLen, FSLen int // tile extent
}

// Layout is the precomputed placement set for fast assembly: every tile
// snapped to the pixel grid, plus the canvas geometry that contains them
// all. A Layout is immutable after construction and safe for concurrent
// use.
type Layout struct {
	placements [][]geom.GridFragment // [module][tile]
	blocks     []TileBlock
	rawSS      int
	rawFS      int
	size       [2]int
	centre     [2]int
}

// NewLayout snaps every fragment and sizes the canvas from the placement
// extrema. It fails with a *geom.NonAxisAlignedError (wrapped with the
// module and tile index) if any tile cannot snap.
func NewLayout(frags [][]geom.Fragment, blocks []TileBlock, rawSS, rawFS int) (*Layout, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("layout: no modules")
	}

	l := &Layout{
		placements: make([][]geom.GridFragment, len(frags)),
		blocks:     blocks,
		rawSS:      rawSS,
		rawFS:      rawFS,
	}

	min := [2]int{math.MaxInt, math.MaxInt}
	max := [2]int{math.MinInt, math.MinInt}
	for m, tiles := range frags {
		if len(tiles) != len(blocks) {
			return nil, fmt.Errorf("layout: module %d has %d tiles, split has %d blocks", m, len(tiles), len(blocks))
		}
		l.placements[m] = make([]geom.GridFragment, len(tiles))
		for t, f := range tiles {
			blk := blocks[t]
			if blk.SSLen != f.SSPixels || blk.FSLen != f.FSPixels {
				return nil, fmt.Errorf("layout: module %d tile %d is %dx%d px, split block is %dx%d",
					m, t, f.SSPixels, f.FSPixels, blk.SSLen, blk.FSLen)
			}
			if blk.SSOff < 0 || blk.FSOff < 0 || blk.SSOff+blk.SSLen > rawSS || blk.FSOff+blk.FSLen > rawFS {
				return nil, fmt.Errorf("layout: tile %d block %+v outside raw %dx%d", t, blk, rawSS, rawFS)
			}

			g, err := f.Snap()
			if err != nil {
				return nil, fmt.Errorf("layout: module %d tile %d: %w", m, t, err)
			}
			l.placements[m][t] = g

			for axis := 0; axis < 2; axis++ {
				if g.CornerIdx[axis] < min[axis] {
					min[axis] = g.CornerIdx[axis]
				}
				if g.OppCornerIdx[axis] > max[axis] {
					max[axis] = g.OppCornerIdx[axis]
				}
			}
		}
	}

	l.size = [2]int{max[0] - min[0], max[1] - min[1]}
	l.centre = [2]int{-min[0], -min[1]}
	return l, nil
}

// Size returns the canvas extent in (rows, cols).
func (l *Layout) Size() [2]int {
	return l.size
}

// Centre returns the canvas (row, col) of the geometry origin. Adding it
// to a placement corner gives the tile's canvas position.
func (l *Layout) Centre() [2]int {
	return l.centre
}

// Modules returns the module count.
func (l *Layout) Modules() int {
	return len(l.placements)
}

// Placement returns the snapped placement of one tile.
func (l *Layout) Placement(module, tile int) geom.GridFragment {
	return l.placements[module][tile]
}

// Assemble places raw detector data onto sentinel-filled canvases. The
// trailing three axes of data must equal (modules, rawSS, rawFS); any
// leading axes are treated as a batch and preserved on the output. The
// returned offset is the canvas (row, col) of the geometry origin.
//
// Batch frames are independent, so they assemble on a bounded worker
// pool; every placement writes a disjoint canvas region and the result
// is identical to serial assembly.
func (l *Layout) Assemble(data *tensor.Array) (*tensor.Array, [2]int, error) {
	batch, frames, err := splitBatch(data, len(l.placements), l.rawSS, l.rawFS)
	if err != nil {
		return nil, [2]int{}, err
	}

	out := tensor.Full(tensor.Sentinel, append(batch, l.size[0], l.size[1])...)
	frameIn := len(l.placements) * l.rawSS * l.rawFS
	frameOut := l.size[0] * l.size[1]
	src := data.Data()
	dst := out.Data()

	if frames == 1 {
		l.assembleFrame(dst, src)
		return out, l.centre, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > frames {
		workers = frames
	}
	var wg sync.WaitGroup
	frameCh := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range frameCh {
				l.assembleFrame(dst[f*frameOut:(f+1)*frameOut], src[f*frameIn:(f+1)*frameIn])
			}
		}()
	}
	for f := 0; f < frames; f++ {
		frameCh <- f
	}
	close(frameCh)
	wg.Wait()

	return out, l.centre, nil
}

// assembleFrame places one frame's modules onto one canvas.
func (l *Layout) assembleFrame(dst, src []float32) {
	moduleLen := l.rawSS * l.rawFS
	for m, tiles := range l.placements {
		module := src[m*moduleLen : (m+1)*moduleLen]
		for t, g := range tiles {
			blk := l.blocks[t]
			srcOff := blk.SSOff*l.rawFS + blk.FSOff
			dstOff := (g.CornerIdx[0]+l.centre[0])*l.size[1] + g.CornerIdx[1] + l.centre[1]
			g.PlaceBlock(dst[dstOff:], l.size[1], module[srcOff:], l.rawFS)
		}
	}
}

// splitBatch validates the trailing axes of data against the raw shape
// and returns the leading batch axes and total frame count.
func splitBatch(data *tensor.Array, modules, rawSS, rawFS int) (batch []int, frames int, err error) {
	shape := data.Shape()
	want := [3]int{modules, rawSS, rawFS}
	if len(shape) < 3 {
		return nil, 0, &ShapeMismatchError{Got: shape, Want: want}
	}
	n := len(shape)
	if shape[n-3] != modules || shape[n-2] != rawSS || shape[n-1] != rawFS {
		return nil, 0, &ShapeMismatchError{Got: shape, Want: want}
	}

	batch = shape[:n-3]
	frames = 1
	for _, b := range batch {
		frames *= b
	}
	return batch, frames, nil
}
