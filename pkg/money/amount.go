package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for currency amounts.
const Scale = 2

var (
	ErrEmptyAmount     = errors.New("amount is required")
	ErrInvalidAmount   = errors.New("invalid amount format")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrTooManyDecimals = errors.New("amount has more than 2 decimal places")
)

// Parse converts a human-readable amount string ("2500", "12.50") to a decimal.
// Negative values and amounts finer than a minor unit are rejected rather than rounded.
func Parse(amountStr string) (decimal.Decimal, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amountStr)
	}

	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}

	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, ErrTooManyDecimals
	}

	return d, nil
}

// Round rounds half away from zero to the currency scale
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// ToMinorUnits converts an amount to gateway minor units (kobo, cents).
// "2500.5" → 250050
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(Scale).Round(0).IntPart()
}

// FromMinorUnits converts gateway minor units back to an amount.
// 250050 → 2500.50
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -Scale)
}

// Format renders an amount with exactly two fractional digits
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
