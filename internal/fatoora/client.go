// Package fatoora is an HTTP client for ZATCA's Fatoora e-invoicing API:
// compliance and production CSID onboarding, compliance checks, and
// invoice reporting and clearance.
package fatoora

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	SandboxBaseURL    = "https://gw-fatoora.zatca.gov.sa/e-invoicing/developer-portal"
	ProductionBaseURL = "https://gw-fatoora.zatca.gov.sa/e-invoicing/core"

	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx response from the Fatoora API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fatoora API returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls the ZATCA Fatoora API. Credentials are the base64
// certificate (binarySecurityToken) and secret issued by the CSID
// endpoints; the CSID onboarding call itself needs neither.
type Client struct {
	certificate string
	secret      string
	baseURL     string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithEnvironment selects "sandbox" (default) or "production"
func WithEnvironment(environment string) ClientOption {
	return func(c *Client) {
		if environment == "production" {
			c.baseURL = ProductionBaseURL
		} else {
			c.baseURL = SandboxBaseURL
		}
	}
}

// WithBaseURL overrides the API base URL, for tests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Fatoora API client
func NewClient(certificate, secret string, opts ...ClientOption) *Client {
	c := &Client{
		certificate: certificate,
		secret:      secret,
		baseURL:     SandboxBaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComplianceCSID requests a compliance CSID with a base64 CSR and the
// OTP from the Fatoora portal. POST /compliance.
func (c *Client) ComplianceCSID(ctx context.Context, csrB64, otp string) (*CSIDResponse, error) {
	extra := map[string]string{"OTP": otp}
	var out CSIDResponse
	if err := c.post(ctx, "/compliance", csidRequest{CSR: csrB64}, extra, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckCompliance validates a signed invoice against ZATCA's compliance
// rules. POST /compliance/invoices.
func (c *Client) CheckCompliance(ctx context.Context, invoiceB64, invoiceHash, uuid string) (*SubmissionResponse, error) {
	return c.submit(ctx, "/compliance/invoices", invoiceB64, invoiceHash, uuid, nil)
}

// ReportInvoice reports a simplified invoice.
// POST /invoices/reporting/single with Clearance-Status 0.
func (c *Client) ReportInvoice(ctx context.Context, invoiceB64, invoiceHash, uuid string) (*SubmissionResponse, error) {
	extra := map[string]string{"Clearance-Status": "0"}
	return c.submit(ctx, "/invoices/reporting/single", invoiceB64, invoiceHash, uuid, extra)
}

// ClearInvoice submits a standard invoice for clearance.
// POST /invoices/clearance/single with Clearance-Status 1.
func (c *Client) ClearInvoice(ctx context.Context, invoiceB64, invoiceHash, uuid string) (*SubmissionResponse, error) {
	extra := map[string]string{"Clearance-Status": "1"}
	return c.submit(ctx, "/invoices/clearance/single", invoiceB64, invoiceHash, uuid, extra)
}

// ProductionCSID exchanges a compliance request ID for a production
// CSID. POST /production/csids.
func (c *Client) ProductionCSID(ctx context.Context, complianceRequestID string) (*CSIDResponse, error) {
	var out CSIDResponse
	payload := productionCSIDRequest{ComplianceRequestID: complianceRequestID}
	if err := c.post(ctx, "/production/csids", payload, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) submit(ctx context.Context, path, invoiceB64, invoiceHash, uuid string, extra map[string]string) (*SubmissionResponse, error) {
	payload := submissionRequest{
		InvoiceHash: invoiceHash,
		UUID:        uuid,
		Invoice:     invoiceB64,
	}
	var out SubmissionResponse
	if err := c.post(ctx, path, payload, extra, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, extra map[string]string, authenticated bool, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "V2")
	req.Header.Set("Accept-Language", "en")
	if authenticated {
		req.Header.Set("Authorization", "Basic "+c.basicCredentials())
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	c.logger.Debug().Str("path", path).Msg("calling fatoora API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fatoora request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// ZATCA uses 200 for accepted and 202 for accepted-with-warnings
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("fatoora API error")
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// basicCredentials builds the Basic auth token as base64(cert:secret)
func (c *Client) basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(c.certificate + ":" + c.secret))
}
