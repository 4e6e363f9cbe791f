// Package units provides shared constants and validation for gait speed
// units. The analysis core reports speeds in mm/s; display layers
// convert on the way out.
package units

// Unit constants
const (
	MMPS = "mmps"
	MPS  = "mps"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MMPS, MPS, KMPH, KPH}

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
	return "mmps, mps, kmph, kph"
}

// ConvertSpeed converts a speed from millimetres per second to the
// target units. Metrics records always store mm/s.
func ConvertSpeed(speedMMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMMPS / 1000
	case KMPH, KPH:
		return speedMMPS * 0.0036
	case MMPS:
		return speedMMPS
	default:
		return speedMMPS // default to mm/s if unknown unit
	}
}
