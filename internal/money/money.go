// Package money sums currency amounts without floating-point drift.
package money

import "math"

// unitsPerDollar is tenths of a cent
const unitsPerDollar = 1000

// Sum adds amounts in integer tenths of a cent and converts back at the end
func Sum(values []float64) float64 {
	var total int64
	for _, v := range values {
		total += ToUnits(v)
	}
	return FromUnits(total)
}

// ToUnits converts a dollar amount to tenths of a cent
func ToUnits(v float64) int64 {
	return int64(math.Round(v * unitsPerDollar))
}

// FromUnits converts tenths of a cent back to dollars
func FromUnits(units int64) float64 {
	return float64(units) / unitsPerDollar
}
