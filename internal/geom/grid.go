package geom

// GridFragment is a tile snapped to exact pixel-grid placement. Assembly
// reduces to copying the raw block with at most an axis swap and flips,
// so no per-pixel arithmetic beyond index remapping remains.
type GridFragment struct {
	CornerIdx    [2]int // lowest-index (row, col) of the placed block
	OppCornerIdx [2]int // CornerIdx + PixelDims
	PixelDims    [2]int // placed extent in (rows, cols)
	Transpose    bool   // placed rows follow the fast-scan axis
	FlipRows     bool   // placed rows run against their scan axis
	FlipCols     bool   // placed columns run against their scan axis
	SSPixels     int
	FSPixels     int
}

// PlaceBlock copies the tile's raw block into a canvas with the snap
// transform applied. src starts at the tile's first raw pixel inside a
// row-major buffer with srcStride elements per slow-scan row; dst starts
// at the placed corner inside a buffer with dstStride elements per canvas
// row.
func (g GridFragment) PlaceBlock(dst []float32, dstStride int, src []float32, srcStride int) {
	rows, cols := g.PixelDims[0], g.PixelDims[1]

	if !g.Transpose && !g.FlipRows && !g.FlipCols {
		for r := 0; r < rows; r++ {
			copy(dst[r*dstStride:r*dstStride+cols], src[r*srcStride:r*srcStride+cols])
		}
		return
	}

	// Reduce the transform to one affine index map
	// srcOff(r, c) = base + r*rStep + c*cStep.
	var base, rStep, cStep int
	r0, rSign := 0, 1
	if g.FlipRows {
		r0, rSign = rows-1, -1
	}
	c0, cSign := 0, 1
	if g.FlipCols {
		c0, cSign = cols-1, -1
	}
	if g.Transpose {
		// Placed (r, c) reads raw (ss=c', fs=r').
		base = c0*srcStride + r0
		rStep = rSign
		cStep = cSign * srcStride
	} else {
		// Placed (r, c) reads raw (ss=r', fs=c').
		base = r0*srcStride + c0
		rStep = rSign * srcStride
		cStep = cSign
	}

	for r := 0; r < rows; r++ {
		srcOff := base + r*rStep
		dstOff := r * dstStride
		for c := 0; c < cols; c++ {
			dst[dstOff+c] = src[srcOff+c*cStep]
		}
	}
}
