package model

import (
	"fmt"
	"strings"
)

// ValidationError represents malformed caller input rejected before any
// document or payload is produced
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s: %s (value=%v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// LineItemError reports a defective line item by its 1-based index
type LineItemError struct {
	Line    int
	Field   string
	Message string
}

func (e *LineItemError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line item %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("line item %d: %s", e.Line, e.Message)
}

// NewLineItemError creates a new line item error
func NewLineItemError(line int, field, message string) *LineItemError {
	return &LineItemError{
		Line:    line,
		Field:   field,
		Message: message,
	}
}

// VATError reports a VAT number that fails the format rule, carrying
// every violated clause
type VATError struct {
	Field      string
	Violations []string
}

func (e *VATError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, strings.Join(e.Violations, "; "))
}

// NewVATError creates a new VAT format error
func NewVATError(field string, violations []string) *VATError {
	return &VATError{
		Field:      field,
		Violations: violations,
	}
}

// MissingBuyerVATError is returned when a standard (B2B) invoice lacks
// the mandatory buyer VAT number
type MissingBuyerVATError struct{}

func (e *MissingBuyerVATError) Error() string {
	return "buyer VAT number is required for standard (B2B) invoices"
}

// ParseError represents a document that could not be parsed as XML
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s (%v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(message string, cause error) *ParseError {
	return &ParseError{
		Message: message,
		Cause:   cause,
	}
}
