package geom

import "math"

// SnapTolerance is the largest per-component deviation (in pixels) an
// orientation vector may have from the pixel-grid axis it rounds to.
// Fabrication tilts on real detectors are milliradian scale and pass
// easily; anything worse is rejected rather than silently truncated.
const SnapTolerance = 0.1

// Fragment describes one rectangular sensor tile in the lab frame.
//
// CornerPos is the centre of the tile's first pixel in readout order,
// in pixel units. SSVec and FSVec are the steps of one pixel along the
// slow-scan and fast-scan axes; for physically sane geometry they are
// unit length and orthogonal, but only snapping enforces alignment.
type Fragment struct {
	CornerPos Vec3
	SSVec     Vec3
	FSVec     Vec3
	SSPixels  int
	FSPixels  int
}

// Corners returns the tile's outline polygon, starting at the readout
// corner and winding first along the fast-scan edge.
func (f Fragment) Corners() [4]Vec3 {
	ssEdge := f.SSVec.Scale(float64(f.SSPixels))
	fsEdge := f.FSVec.Scale(float64(f.FSPixels))
	return [4]Vec3{
		f.CornerPos,
		f.CornerPos.Add(fsEdge),
		f.CornerPos.Add(fsEdge).Add(ssEdge),
		f.CornerPos.Add(ssEdge),
	}
}

// Centre returns the tile's midpoint.
func (f Fragment) Centre() Vec3 {
	return f.CornerPos.
		Add(f.SSVec.Scale(float64(f.SSPixels) / 2)).
		Add(f.FSVec.Scale(float64(f.FSPixels) / 2))
}

// Offset returns a copy of the fragment translated by delta.
func (f Fragment) Offset(delta Vec3) Fragment {
	f.CornerPos = f.CornerPos.Add(delta)
	return f
}

// Snap derives the exact integer-grid placement of the tile.
//
// Steps:
//  1. Round the in-plane components of the orientation vectors. Each must
//     round to a unit step along one grid axis, stay within SnapTolerance
//     of that step, and the two must take different axes; otherwise fail
//     with *NonAxisAlignedError.
//  2. Round the in-plane corner position to the nearest pixel index.
//     Corner positions round freely: half-pixel offsets between quadrants
//     are expected and carry no tolerance.
//  3. Swap (x, y) into (row, col) and reduce the orientation signs to a
//     transpose flag plus row/column flips. Axes placed in the negative
//     direction shift the corner by their extent, so CornerIdx is always
//     the lowest-index corner of the placed block.
func (f Fragment) Snap() (GridFragment, error) {
	ssRow, ssCol, ssOK := axisDirection(f.SSVec)
	fsRow, fsCol, fsOK := axisDirection(f.FSVec)
	if !ssOK || !fsOK || (ssRow == 0) == (fsRow == 0) {
		return GridFragment{}, &NonAxisAlignedError{SSVec: f.SSVec, FSVec: f.FSVec}
	}

	corner := [2]int{
		int(math.Round(f.CornerPos.Y)),
		int(math.Round(f.CornerPos.X)),
	}

	g := GridFragment{SSPixels: f.SSPixels, FSPixels: f.FSPixels}
	if fsRow == 0 {
		// Fast scan runs along canvas columns: flips only.
		g.FlipRows = ssRow < 0
		g.FlipCols = fsCol < 0
		g.PixelDims = [2]int{f.SSPixels, f.FSPixels}
	} else {
		// Fast scan runs along canvas rows: transpose, then flip.
		g.Transpose = true
		g.FlipRows = fsRow < 0
		g.FlipCols = ssCol < 0
		g.PixelDims = [2]int{f.FSPixels, f.SSPixels}
	}
	if g.FlipRows {
		corner[0] -= g.PixelDims[0]
	}
	if g.FlipCols {
		corner[1] -= g.PixelDims[1]
	}

	g.CornerIdx = corner
	g.OppCornerIdx = [2]int{
		corner[0] + g.PixelDims[0],
		corner[1] + g.PixelDims[1],
	}
	return g, nil
}

// axisDirection rounds the in-plane components of v and reports the
// resulting (row, col) grid step. ok is false when v does not round to a
// single-axis unit step within SnapTolerance.
func axisDirection(v Vec3) (row, col int, ok bool) {
	rx := math.Round(v.X)
	ry := math.Round(v.Y)
	if math.Abs(v.X-rx) > SnapTolerance || math.Abs(v.Y-ry) > SnapTolerance {
		return 0, 0, false
	}
	ix, iy := int(rx), int(ry)
	if abs(ix)+abs(iy) != 1 {
		return 0, 0, false
	}
	return iy, ix, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
