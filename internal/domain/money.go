package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balances and amounts are stored as int64 minor units (cents). Rate
// arithmetic goes through decimal and is rounded half away from zero to
// the nearest minor unit; that is the single rounding rule for interest
// and reward computations.
const MinorUnitsPerUnit = 100

func UnitsToMinor(units int64) int64 {
	return units * MinorUnitsPerUnit
}

// ApplyRate multiplies a minor-unit amount by a rate and rounds to the
// nearest minor unit, half away from zero.
func ApplyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.New(amount, 0).Mul(rate).Round(0).IntPart()
}

// ParseAmount converts a decimal string like "120.50" into minor units.
// More than two fractional digits is rejected rather than silently
// rounded.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := d.Mul(decimal.New(MinorUnitsPerUnit, 0))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a fixed two-decimal string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
