package geom

import (
	"errors"
	"fmt"
)

// ErrNonAxisAligned reports a tile whose orientation vectors do not lie
// along the pixel grid within SnapTolerance. Such tiles cannot be placed
// by block copy and must go through the interpolating assembler.
var ErrNonAxisAligned = errors.New("tile orientation not axis-aligned to pixel grid")

// NonAxisAlignedError carries the orientation vectors that failed to snap.
type NonAxisAlignedError struct {
	SSVec Vec3
	FSVec Vec3
}

func (e *NonAxisAlignedError) Error() string {
	return fmt.Sprintf("%v: ss=(%g, %g) fs=(%g, %g)",
		ErrNonAxisAligned, e.SSVec.X, e.SSVec.Y, e.FSVec.X, e.FSVec.Y)
}

// Unwrap makes errors.Is(err, ErrNonAxisAligned) match.
func (e *NonAxisAlignedError) Unwrap() error {
	return ErrNonAxisAligned
}
