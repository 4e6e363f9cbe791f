package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%q) = false, want true", unit)
		}
	}
	for _, unit := range []string{"", "furlongs", "MPH", "m/s"} {
		if IsValid(unit) {
			t.Errorf("IsValid(%q) = true, want false", unit)
		}
	}
}

func TestConvertSpeed(t *testing.T) {
	cases := []struct {
		mmps float64
		unit string
		want float64
	}{
		{1200, MMPS, 1200},
		{1200, MPS, 1.2},
		{1200, KMPH, 4.32},
		{1200, KPH, 4.32},
		{1200, "unknown", 1200},
		{0, MPS, 0},
	}
	for _, tc := range cases {
		got := ConvertSpeed(tc.mmps, tc.unit)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ConvertSpeed(%v, %q) = %v, want %v", tc.mmps, tc.unit, got, tc.want)
		}
	}
}
