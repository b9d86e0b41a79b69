// Package tensor provides the dense row-major float32 arrays exchanged
// between the detector assembly stages. Raw detector data arrives as an
// array whose trailing three axes are (module, slow scan, fast scan),
// with any number of leading batch axes; assembled canvases come back as
// batch axes plus two image axes.
//
// Hot paths index the backing slice directly via Data and explicit
// strides; At/Set are for construction and tests.
package tensor

import (
	"fmt"
	"math"
)

// Sentinel marks canvas pixels that no tile covers. Assembled outputs are
// initialised to it before placement.
var Sentinel = float32(math.NaN())

// IsSentinel reports whether v is the no-data marker.
func IsSentinel(v float32) bool {
	return math.IsNaN(float64(v))
}

// Array is a dense row-major N-dimensional float32 array. The zero value
// is not usable; construct with New or Full.
type Array struct {
	shape   []int
	strides []int
	data    []float32
}

// New returns a zero-filled array with the given shape. It panics if the
// shape is empty or any dimension is not positive.
func New(shape ...int) *Array {
	return newArray(shape)
}

// Full returns an array with every element set to v.
func Full(v float32, shape ...int) *Array {
	a := newArray(shape)
	a.Fill(v)
	return a
}

// FromSlice wraps data in an array of the given shape. The slice is used
// directly, not copied. It panics if the element count does not match.
func FromSlice(data []float32, shape ...int) *Array {
	a := &Array{shape: cloneInts(shape), strides: stridesFor(shape)}
	if n := sizeOf(shape); len(data) != n {
		panic(fmt.Sprintf("tensor: slice of %d elements cannot take shape %v (%d elements)", len(data), shape, n))
	}
	a.data = data
	return a
}

func newArray(shape []int) *Array {
	return &Array{
		shape:   cloneInts(shape),
		strides: stridesFor(shape),
		data:    make([]float32, sizeOf(shape)),
	}
}

func sizeOf(shape []int) int {
	if len(shape) == 0 {
		panic("tensor: empty shape")
	}
	size := 1
	for _, n := range shape {
		if n <= 0 {
			panic(fmt.Sprintf("tensor: dimension %d in shape %v", n, shape))
		}
		size *= n
	}
	return size
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func cloneInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}

// Shape returns a copy of the array's dimensions.
func (a *Array) Shape() []int {
	return cloneInts(a.shape)
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Dim returns the length of axis i. Negative i counts from the end, so
// Dim(-1) is the fastest-varying axis.
func (a *Array) Dim(i int) int {
	if i < 0 {
		i += len(a.shape)
	}
	return a.shape[i]
}

// Size returns the total element count.
func (a *Array) Size() int {
	return len(a.data)
}

// Stride returns the element stride of axis i. Negative i counts from
// the end.
func (a *Array) Stride(i int) int {
	if i < 0 {
		i += len(a.strides)
	}
	return a.strides[i]
}

// Data returns the backing slice. Mutations are visible to the array.
func (a *Array) Data() []float32 {
	return a.data
}

// Offset returns the flat index of the element at ix.
func (a *Array) Offset(ix ...int) int {
	if len(ix) != len(a.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d array", len(ix), len(a.shape)))
	}
	off := 0
	for i, x := range ix {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (length %d)", x, i, a.shape[i]))
		}
		off += x * a.strides[i]
	}
	return off
}

// At returns the element at ix.
func (a *Array) At(ix ...int) float32 {
	return a.data[a.Offset(ix...)]
}

// Set stores v at ix.
func (a *Array) Set(v float32, ix ...int) {
	a.data[a.Offset(ix...)] = v
}

// Fill sets every element to v.
func (a *Array) Fill(v float32) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := newArray(a.shape)
	copy(out.data, a.data)
	return out
}

// ShapeEqual reports whether two shapes match exactly.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
