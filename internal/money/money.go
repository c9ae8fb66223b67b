// Package money formats and rounds display amounts.
//
// Amounts are carried as float64 through allocation and conversion and only
// rounded here, at display time.
package money

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Places is the number of decimals every displayed amount carries.
const Places = 2

// Round rounds amount half away from zero to two decimal places using the
// shortest decimal representation of the float, so 1.005 rounds to 1.01.
func Round(amount float64) float64 {
	if !finite(amount) {
		return amount
	}
	f, _ := decimal.NewFromFloat(amount).Round(Places).Float64()
	return f
}

// Fixed renders amount with exactly two decimals, without a symbol.
// Non-finite amounts render as +Inf, -Inf or NaN.
func Fixed(amount float64) string {
	if !finite(amount) {
		return strconv.FormatFloat(amount, 'f', Places, 64)
	}
	return decimal.NewFromFloat(amount).StringFixed(Places)
}

// Format renders amount with exactly two decimals prefixed by symbol.
func Format(symbol string, amount float64) string {
	return symbol + Fixed(amount)
}

// FormatRate renders an exchange rate with four decimals.
func FormatRate(rate float64) string {
	if !finite(rate) {
		return strconv.FormatFloat(rate, 'f', 4, 64)
	}
	return decimal.NewFromFloat(rate).StringFixed(4)
}

// Convert applies rate to amount without rounding.
func Convert(amount, rate float64) float64 {
	return amount * rate
}

// SumRounded rounds each amount to two decimals and adds them exactly.
// Useful when comparing rounded figures to a rounded total.
func SumRounded(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if !finite(a) {
			return math.NaN()
		}
		total = total.Add(decimal.NewFromFloat(a).Round(Places))
	}
	f, _ := total.Float64()
	return f
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
