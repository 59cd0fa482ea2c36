package budget

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalculatePercentage returns part as a percentage of total, or 0 when total
// is zero or negative.
func CalculatePercentage(part, total float64) float64 {
	if total > 0 {
		return (part / total) * 100
	}
	return 0
}

// CalculateGrowth returns the relative change from previous to current in
// percent, or 0 when previous is zero or negative.
func CalculateGrowth(current, previous float64) float64 {
	if previous > 0 {
		return ((current - previous) / previous) * 100
	}
	return 0
}

// FormatPercentage renders value with one decimal and a trailing "%".
func FormatPercentage(value float64) string {
	return FormatPercentageN(value, 1)
}

// FormatPercentageN renders value with the given number of decimals and a
// trailing "%". No grouping is applied.
func FormatPercentageN(value float64, decimals int) string {
	switch {
	case math.IsNaN(value):
		return "NaN%"
	case math.IsInf(value, 1):
		return "Infinity%"
	case math.IsInf(value, -1):
		return "-Infinity%"
	}
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(value).StringFixed(int32(decimals)) + "%"
}
