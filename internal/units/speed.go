// Package units provides shared constants and conversions for finger speeds.
package units

import (
	"strings"

	"github.com/banshee-data/multitouch/internal/touch/coords"
)

// Unit constants
const (
	// Stage is logical stage units per second, the unit the tracker reports.
	Stage = "stage"
	// Pixels is surface client pixels per second.
	Pixels = "px"
	// Widths is stage widths per second.
	Widths = "widths"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Stage, Pixels, Widths}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed in stage units per second to the target
// units. Pixel speeds use the horizontal scale of bounds, so they are exact
// only when the surface keeps the stage's 4:3 aspect. Unknown units and
// degenerate bounds leave the speed unchanged.
func ConvertSpeed(speed float64, bounds coords.Rect, targetUnits string) float64 {
	switch targetUnits {
	case Pixels:
		if !bounds.Valid() {
			return speed
		}
		return speed * bounds.Width() / (2 * coords.HalfWidth)
	case Widths:
		return speed / (2 * coords.HalfWidth)
	default:
		return speed
	}
}
