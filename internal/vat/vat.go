// Package vat implements the Saudi VAT registration number format rule.
package vat

import "fmt"

// ValidateNumber checks a VAT registration number against the ZATCA
// format: exactly 15 ASCII digits, starting and ending with '3'. All
// applicable violations are returned, not just the first. An empty
// input short-circuits with a single "required" violation.
func ValidateNumber(number string) []string {
	var violations []string
	if number == "" {
		return []string{"VAT number is required"}
	}
	if len(number) != 15 {
		violations = append(violations, fmt.Sprintf("VAT number must be 15 digits, got %d", len(number)))
	}
	if !digitsOnly(number) {
		violations = append(violations, "VAT number must contain only digits")
	}
	if number[0] != '3' {
		violations = append(violations, "VAT number must start with 3")
	}
	if number[len(number)-1] != '3' {
		violations = append(violations, "VAT number must end with 3")
	}
	return violations
}

// IsValid reports whether the number passes every format clause
func IsValid(number string) bool {
	return len(ValidateNumber(number)) == 0
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
