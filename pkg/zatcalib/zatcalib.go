// Package zatcalib provides a public API for ZATCA e-invoicing: UBL 2.1
// invoice generation, business-rule validation, and TLV QR codecs.
//
// Example usage:
//
//	result, err := zatcalib.Generate(zatcalib.GenerateRequest{
//	    InvoiceType:   zatcalib.TypeSimplified,
//	    InvoiceNumber: "INV-2024-001",
//	    IssueDate:     "2024-01-15",
//	    Seller:        zatcalib.Party{Name: "Fikrah Tech", VATNumber: "300000000000003"},
//	    Items: []zatcalib.LineItemInput{
//	        {Name: "Laptop", Quantity: "2", UnitPrice: "3500.00"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.XML)
package zatcalib

import (
	"time"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/tlv"
	"github.com/DoubleH10/zatca-mcp/internal/validator"
	"github.com/DoubleH10/zatca-mcp/internal/vat"
)

// Re-export core types for public API
type (
	InvoiceType      = model.InvoiceType
	VATCategory      = model.VATCategory
	Party            = model.Party
	LineItemInput    = model.LineItemInput
	GenerateRequest  = model.GenerateRequest
	BillingReference = model.BillingReference
	Totals           = model.Totals
	ValidationResult = model.ValidationResult
	QRFields         = tlv.Fields
	BuildResult      = builder.Result
)

// Re-export invoice types
const (
	TypeStandard   = model.TypeStandard
	TypeSimplified = model.TypeSimplified
	TypeCreditNote = model.TypeCreditNote
	TypeDebitNote  = model.TypeDebitNote
)

// Re-export VAT categories
const (
	CategoryStandard   = model.CategoryStandard
	CategoryExempt     = model.CategoryExempt
	CategoryZeroRated  = model.CategoryZeroRated
	CategoryOutOfScope = model.CategoryOutOfScope
)

// Re-export error types
type (
	ValidationError = model.ValidationError
	LineItemError   = model.LineItemError
	VATError        = model.VATError
	ParseError      = model.ParseError
)

// Generate builds a UBL 2.1 XML invoice from a request. A Phase 1 QR
// payload is computed and embedded when the request does not carry one.
func Generate(req GenerateRequest) (*BuildResult, error) {
	now := time.Now()
	if req.QRData == "" {
		payload, err := builder.PhaseOneQR(req, now)
		if err != nil {
			return nil, err
		}
		req.QRData = payload
	}
	return builder.New(builder.WithClock(func() time.Time { return now })).Build(req)
}

// Validate checks invoice XML against the ZATCA business rules
func Validate(invoiceXML string) *ValidationResult {
	return validator.Validate(invoiceXML)
}

// EncodeQR encodes QR fields into a base64 TLV payload
func EncodeQR(fields QRFields) (string, error) {
	return tlv.Encode(fields)
}

// DecodeQR decodes a base64 TLV payload into tag-keyed values
func DecodeQR(payload string) (map[int]string, error) {
	return tlv.Decode(payload)
}

// DecodeQRNamed decodes a base64 TLV payload into name-keyed values
func DecodeQRNamed(payload string) (map[string]string, error) {
	return tlv.DecodeNamed(payload)
}

// ValidateVATNumber checks a Saudi VAT registration number, returning
// one message per violated rule
func ValidateVATNumber(number string) []string {
	return vat.ValidateNumber(number)
}
