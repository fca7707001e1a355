// Package model defines the invoice data model shared by the builder,
// the validator, and the outer CLI/HTTP surfaces.
package model

import (
	"github.com/shopspring/decimal"
)

// InvoiceType identifies the ZATCA document kind
type InvoiceType string

const (
	TypeStandard   InvoiceType = "standard"   // B2B tax invoice
	TypeSimplified InvoiceType = "simplified" // B2C tax invoice
	TypeCreditNote InvoiceType = "credit_note"
	TypeDebitNote  InvoiceType = "debit_note"
)

// UBL type codes per ZATCA
const (
	TypeCodeInvoice    = "388"
	TypeCodeCreditNote = "381"
	TypeCodeDebitNote  = "383"
)

// Invoice sub-type markers carried in the InvoiceTypeCode name attribute
const (
	SubtypeStandard   = "0100000"
	SubtypeSimplified = "0200000"
)

// TypeCode maps an invoice type to its UBL numeric code. Unknown types
// fall back to 388, matching the generator's lenient behavior.
func (t InvoiceType) TypeCode() string {
	switch t {
	case TypeCreditNote:
		return TypeCodeCreditNote
	case TypeDebitNote:
		return TypeCodeDebitNote
	default:
		return TypeCodeInvoice
	}
}

// SubtypeCode maps an invoice type to its sub-type marker. Credit and
// debit notes reuse the standard marker.
func (t InvoiceType) SubtypeCode() string {
	if t == TypeSimplified {
		return SubtypeSimplified
	}
	return SubtypeStandard
}

// IsNote reports whether the type is a credit or debit note
func (t InvoiceType) IsNote() bool {
	return t == TypeCreditNote || t == TypeDebitNote
}

// VATCategory is the UBL tax category code
type VATCategory string

const (
	CategoryStandard   VATCategory = "S"
	CategoryExempt     VATCategory = "E"
	CategoryZeroRated  VATCategory = "Z"
	CategoryOutOfScope VATCategory = "O"
)

// Party represents a seller or buyer
type Party struct {
	Name        string `json:"name"`
	VATNumber   string `json:"vat_number,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code,omitempty"` // defaults to SA
}

// LineItem is one invoice line with its computed amounts. Amounts are
// derived once by the builder and not mutated afterwards.
type LineItem struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATCategory VATCategory     `json:"vat_category"`

	// Derived
	LineAmount decimal.Decimal `json:"line_amount"`
	LineVAT    decimal.Decimal `json:"line_vat"`
}

// TaxGroup aggregates the lines sharing one (rate, category) pair
type TaxGroup struct {
	Rate     decimal.Decimal `json:"rate"`
	Category VATCategory     `json:"category"`
	Taxable  decimal.Decimal `json:"taxable"`
	Tax      decimal.Decimal `json:"tax"`
}

// Totals are the aggregate monetary amounts of one invoice
type Totals struct {
	TaxExclusive decimal.Decimal `json:"tax_exclusive"`
	TotalVAT     decimal.Decimal `json:"total_vat"`
	TaxInclusive decimal.Decimal `json:"tax_inclusive"`
	Payable      decimal.Decimal `json:"payable"`
}

// BillingReference points a credit or debit note at its original invoice
type BillingReference struct {
	ID        string `json:"id"`
	IssueDate string `json:"issue_date,omitempty"`
}

// ValidationResult is the outcome of a compliance validation run. Error
// strings are prefixed with their rule code (e.g. "BR-06: ...").
type ValidationResult struct {
	IsValid   bool     `json:"is_valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	ChecksRun int      `json:"checks_run"`
}
