package fatoora

// CheckResult is a single validation result reported by ZATCA
type CheckResult struct {
	Type     string `json:"type,omitempty"`     // INFO, WARNING, or ERROR
	Code     string `json:"code,omitempty"`     // Validation rule code
	Category string `json:"category,omitempty"` // Validation category
	Message  string `json:"message,omitempty"`  // Human-readable message
	Status   string `json:"status,omitempty"`   // PASS or FAIL
}

// CSIDResponse is the response from the compliance and production CSID
// endpoints
type CSIDResponse struct {
	RequestID string `json:"requestID,omitempty"`

	// BinarySecurityToken is the base64-encoded certificate
	BinarySecurityToken string `json:"binarySecurityToken,omitempty"`

	// Secret authenticates subsequent API calls together with the token
	Secret string `json:"secret,omitempty"`

	Errors   []CheckResult `json:"errors,omitempty"`
	Warnings []CheckResult `json:"warnings,omitempty"`
}

// SubmissionResponse is the response from the compliance-check,
// reporting, and clearance endpoints
type SubmissionResponse struct {
	// Status is REPORTED, CLEARED, or REJECTED
	Status string `json:"status,omitempty"`

	ValidationResults []CheckResult `json:"validationResults,omitempty"`

	// ClearedInvoice is the base64 invoice returned in clearance mode
	ClearedInvoice string `json:"clearedInvoice,omitempty"`

	Errors   []CheckResult `json:"errors,omitempty"`
	Warnings []CheckResult `json:"warnings,omitempty"`
}

// submissionRequest is the shared payload of the invoice endpoints
type submissionRequest struct {
	InvoiceHash string `json:"invoiceHash"`
	UUID        string `json:"uuid"`
	Invoice     string `json:"invoice"`
}

type csidRequest struct {
	CSR string `json:"csr"`
}

type productionCSIDRequest struct {
	ComplianceRequestID string `json:"compliance_request_id"`
}
