package report

import (
	"github.com/shopspring/decimal"
)

// ============================================================================
// FORMATTING: Fixed-point rendering of engineering values
// ============================================================================
// Values are rounded half away from zero on their decimal representation,
// so 1.005 renders as "1.01" rather than the "1.00" binary rounding gives.
// Trailing zeros are kept to the requested places: tables line up.
// ============================================================================

// Number renders v with exactly places decimals.
func Number(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Round returns v rounded to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Amps renders a current: "150.0 A".
func Amps(v float64) string {
	return Number(v, 1) + " A"
}

// Percent renders a percentage: "1.67%".
func Percent(v float64) string {
	return Number(v, 2) + "%"
}

// KVA renders an apparent power: "750.0 kVA".
func KVA(v float64) string {
	return Number(v, 1) + " kVA"
}
