// Package units provides shared constants and validation for axis display units
package units

import (
	"errors"
	"fmt"
)

// Unit is an axis display unit for rendered geometry and frame plots.
type Unit string

// Unit constants
const (
	// Pixels labels axes in detector pixel units.
	Pixels Unit = "px"
	// Metres labels axes in physical units scaled by the pixel size.
	Metres Unit = "m"
)

// ValidUnits contains all valid axis unit values
var ValidUnits = []Unit{Pixels, Metres}

// ErrInvalidUnit reports an axis unit outside ValidUnits.
var ErrInvalidUnit = errors.New("invalid axis units")

// InvalidUnitError carries the rejected value.
type InvalidUnitError struct {
	Value string
}

func (e *InvalidUnitError) Error() string {
	return fmt.Sprintf("%v: %q (valid: %s)", ErrInvalidUnit, e.Value, ValidUnitsString())
}

// Unwrap makes errors.Is(err, ErrInvalidUnit) match.
func (e *InvalidUnitError) Unwrap() error {
	return ErrInvalidUnit
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit Unit) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// Parse validates a unit string from a flag or caller option.
func Parse(s string) (Unit, error) {
	u := Unit(s)
	if !IsValid(u) {
		return "", &InvalidUnitError{Value: s}
	}
	return u, nil
}

// ValidUnitsString returns a comma-separated string of valid units for error messages
func ValidUnitsString() string {
	return "px, m"
}

// Scale converts one detector pixel to the unit's axis scale.
// Geometry is held in pixel units; pixelSize is the edge length of one
// pixel in metres.
func (u Unit) Scale(pixelSize float64) float64 {
	switch u {
	case Metres:
		return pixelSize
	default:
		return 1 // pixel axes need no conversion
	}
}

// Label returns the axis label for plots.
func (u Unit) Label() string {
	switch u {
	case Metres:
		return "metres"
	default:
		return "pixels"
	}
}
