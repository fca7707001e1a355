package money

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// Default Saudi VAT rate (15%)
var DefaultVATRate = decimal.New(15, -2)

// FromString parses a decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round2 rounds half away from zero to 2 decimal places.
// ZATCA arithmetic checks allow a 0.01 tolerance, so every amount that
// lands in the document must go through this exact rounding mode.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmount computes quantity * unit price, rounded to 2 places
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// LineVAT computes the VAT on an already-rounded line amount
func LineVAT(lineAmount, vatRate decimal.Decimal) decimal.Decimal {
	return Round2(lineAmount.Mul(vatRate))
}

// RatePercent converts a fractional VAT rate to a whole percentage
// (0.15 -> 15), as UBL tax categories carry percentages
func RatePercent(vatRate decimal.Decimal) decimal.Decimal {
	return vatRate.Mul(decimal.NewFromInt(100)).Round(0)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// Format renders an amount with exactly 2 decimal places
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// WithinTolerance reports whether two amounts differ by at most 0.01,
// absorbing rounding-path differences between builder and validator
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(decimal.New(1, -2))
}
