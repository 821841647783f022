// Package units provides shared constants and validation for speed units
package units

// Unit constants
const (
	KMH = "kmh"
	MPH = "mph"
	MPS = "mps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KMH, MPH, MPS}

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
	return "kmh, mph, mps"
}

// ConvertSpeed converts a speed from kilometers per hour to the target units.
// Telemetry stores speeds in km/h.
func ConvertSpeed(speedKMH float64, targetUnits string) float64 {
	switch targetUnits {
	case KMH:
		return speedKMH
	case MPH:
		return speedKMH * 0.62137119223733
	case MPS:
		return speedKMH / 3.6
	default:
		return speedKMH
	}
}
