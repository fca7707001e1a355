package vat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoubleH10/zatca-mcp/internal/vat"
)

func TestValidateNumber_Valid(t *testing.T) {
	violations := vat.ValidateNumber("300000000000003")
	assert.Empty(t, violations)
	assert.True(t, vat.IsValid("300000000000003"))
}

func TestValidateNumber_Empty(t *testing.T) {
	violations := vat.ValidateNumber("")
	require.Len(t, violations, 1)
	assert.Equal(t, "VAT number is required", violations[0])
}

func TestValidateNumber_WrongBoundaryDigits(t *testing.T) {
	violations := vat.ValidateNumber("100000000000001")
	assert.Contains(t, violations, "VAT number must start with 3")
	assert.Contains(t, violations, "VAT number must end with 3")
	assert.Len(t, violations, 2)
}

func TestValidateNumber_ShortNonDigit(t *testing.T) {
	violations := vat.ValidateNumber("3a3")
	assert.Contains(t, violations, "VAT number must be 15 digits, got 3")
	assert.Contains(t, violations, "VAT number must contain only digits")
	assert.Len(t, violations, 2)
}

func TestValidateNumber_TooLong(t *testing.T) {
	violations := vat.ValidateNumber("3000000000000003")
	assert.Contains(t, violations, "VAT number must be 15 digits, got 16")
	assert.Len(t, violations, 1)
}

func TestValidateNumber_AllClausesAtOnce(t *testing.T) {
	violations := vat.ValidateNumber("xy")
	assert.Len(t, violations, 4)
}
