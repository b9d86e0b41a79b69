package assemble

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch reports input data whose trailing axes do not match
// the detector's raw shape.
var ErrShapeMismatch = errors.New("data shape does not match detector raw shape")

// ShapeMismatchError carries the offending and required shapes.
type ShapeMismatchError struct {
	Got  []int  // full input shape
	Want [3]int // required trailing axes: (modules, slow scan, fast scan)
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: got %v, want trailing axes %v", ErrShapeMismatch, e.Got, e.Want)
}

// Unwrap makes errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}
