package model

import "encoding/json"

// LineItemInput is a caller-supplied invoice line before numeric
// validation. Quantity and unit price arrive as JSON numbers or numeric
// strings and are parsed exactly, never through float64.
type LineItemInput struct {
	Name        string      `json:"name"`
	Quantity    json.Number `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	VATRate     json.Number `json:"vat_rate,omitempty"`     // defaults to 0.15
	VATCategory VATCategory `json:"vat_category,omitempty"` // defaults to S
}

// GenerateRequest carries everything needed to build one invoice
// document. IssueDate is caller-supplied; UUID and issue time are
// generated fresh unless overridden through builder options.
type GenerateRequest struct {
	InvoiceType   InvoiceType     `json:"invoice_type"`
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     string          `json:"issue_date"` // YYYY-MM-DD
	Currency      string          `json:"currency,omitempty"`
	Note          string          `json:"note,omitempty"`
	Seller        Party           `json:"seller"`
	Buyer         Party           `json:"buyer"`
	Items         []LineItemInput `json:"items"`

	// Credit/debit notes
	BillingReference *BillingReference `json:"billing_reference,omitempty"`
	InstructionNote  string            `json:"instruction_note,omitempty"`

	// Base64 TLV payload to embed; computed by the caller over the
	// final rounded totals
	QRData string `json:"qr_data,omitempty"`
}
