package server

import "github.com/DoubleH10/zatca-mcp/internal/model"

// GenerateResponse is returned by the invoice generation endpoint
type GenerateResponse struct {
	XML       string       `json:"xml"`
	UUID      string       `json:"uuid"`
	QRBase64  string       `json:"qr_base64"`
	IssueTime string       `json:"issue_time"`
	Totals    model.Totals `json:"totals"`
}

// QRRequest is the payload of the QR encoding endpoint
type QRRequest struct {
	SellerName  string `json:"seller_name" binding:"required"`
	VATNumber   string `json:"vat_number" binding:"required"`
	Timestamp   string `json:"timestamp" binding:"required"`
	TotalAmount string `json:"total_amount" binding:"required"`
	VATAmount   string `json:"vat_amount" binding:"required"`

	InvoiceHash    string `json:"invoice_hash,omitempty"`
	ECDSASignature string `json:"ecdsa_signature,omitempty"`
	ECDSAPublicKey string `json:"ecdsa_public_key,omitempty"`
}

// QRResponse is returned by the QR encoding endpoint
type QRResponse struct {
	QRBase64 string `json:"qr_base64"`
}

// DecodeQRRequest is the payload of the QR decoding endpoint
type DecodeQRRequest struct {
	QRBase64 string `json:"qr_base64" binding:"required"`
}

// SignRequest is the payload of the signing endpoint
type SignRequest struct {
	InvoiceXML     string `json:"invoice_xml" binding:"required"`
	CertificatePEM string `json:"certificate_pem" binding:"required"`
	PrivateKeyPEM  string `json:"private_key_pem" binding:"required"`
}

// SignResponse is returned by the signing endpoint
type SignResponse struct {
	SignedXML   string `json:"signed_xml"`
	InvoiceHash string `json:"invoice_hash"`
	QRBase64    string `json:"qr_base64,omitempty"`
}

// CSRRequest is the payload of the CSR generation endpoint
type CSRRequest struct {
	CommonName         string `json:"common_name" binding:"required"`
	Organization       string `json:"organization" binding:"required"`
	OrganizationalUnit string `json:"organizational_unit" binding:"required"`
	Country            string `json:"country,omitempty"`
	SerialNumber       string `json:"serial_number,omitempty"`
	InvoiceType        string `json:"invoice_type,omitempty"`
	Location           string `json:"location,omitempty"`
	Industry           string `json:"industry,omitempty"`
}

// CSRResponse is returned by the CSR generation endpoint
type CSRResponse struct {
	CSRPEM        string `json:"csr_pem"`
	PrivateKeyPEM string `json:"private_key_pem"`
}

// SubmitRequest is the payload of the submission and compliance-check
// endpoints
type SubmitRequest struct {
	SignedXML   string `json:"signed_xml" binding:"required"`
	InvoiceHash string `json:"invoice_hash" binding:"required"`
	UUID        string `json:"uuid" binding:"required"`

	// Mode is "reporting" (simplified invoices) or "clearance"
	// (standard invoices); submission endpoint only
	Mode string `json:"mode,omitempty"`
}
