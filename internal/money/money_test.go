package money_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoubleH10/zatca-mcp/internal/money"
)

func TestFromString(t *testing.T) {
	d, err := money.FromString("123456.78")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec.RequireFromString("123456.78")))

	_, err = money.FromString("not-a-number")
	require.Error(t, err)
}

func TestMustFromString(t *testing.T) {
	d := money.MustFromString("999.99")
	assert.True(t, d.Equal(dec.RequireFromString("999.99")))

	assert.Panics(t, func() {
		money.MustFromString("invalid")
	})
}

func TestRound2(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"half rounds up", "0.125", "0.13"},
		{"half rounds away from zero for negatives", "-0.125", "-0.13"},
		{"below half rounds down", "0.124", "0.12"},
		{"already two places", "10.50", "10.50"},
		{"whole number", "1000", "1000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := money.Round2(dec.RequireFromString(tt.input))
			assert.Equal(t, tt.expected, money.Format(result))
		})
	}
}

func TestLineAmount(t *testing.T) {
	qty := dec.NewFromInt(3)
	price := dec.RequireFromString("33.335")

	// 3 * 33.335 = 100.005 -> 100.01
	result := money.LineAmount(qty, price)
	assert.Equal(t, "100.01", money.Format(result))
}

func TestLineVAT(t *testing.T) {
	amount := dec.RequireFromString("1000.00")
	rate := money.DefaultVATRate

	result := money.LineVAT(amount, rate)
	assert.Equal(t, "150.00", money.Format(result))
}

func TestRatePercent(t *testing.T) {
	assert.Equal(t, "15", money.RatePercent(dec.RequireFromString("0.15")).String())
	assert.Equal(t, "0", money.RatePercent(dec.Zero).String())
	assert.Equal(t, "5", money.RatePercent(dec.RequireFromString("0.05")).String())
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.NewFromInt(300),
	}
	result := money.Sum(values)
	assert.True(t, result.Equal(dec.NewFromInt(600)))
}

func TestSum_Empty(t *testing.T) {
	result := money.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}

func TestWithinTolerance(t *testing.T) {
	a := dec.RequireFromString("100.00")

	assert.True(t, money.WithinTolerance(a, dec.RequireFromString("100.01")))
	assert.True(t, money.WithinTolerance(a, dec.RequireFromString("99.99")))
	assert.False(t, money.WithinTolerance(a, dec.RequireFromString("100.02")))
}

func TestIsPositive(t *testing.T) {
	assert.True(t, money.IsPositive(dec.NewFromInt(1)))
	assert.False(t, money.IsPositive(dec.Zero))
	assert.False(t, money.IsPositive(dec.NewFromInt(-1)))
}

func TestIsNonNegative(t *testing.T) {
	assert.True(t, money.IsNonNegative(dec.NewFromInt(1)))
	assert.True(t, money.IsNonNegative(dec.Zero))
	assert.False(t, money.IsNonNegative(dec.NewFromInt(-1)))
}
