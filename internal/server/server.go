// Package server exposes the invoicing core over an HTTP API: invoice
// generation, validation, QR encoding and decoding, signing, and
// submission to ZATCA.
package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/fatoora"
	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/signing"
	"github.com/DoubleH10/zatca-mcp/internal/tlv"
	"github.com/DoubleH10/zatca-mcp/internal/validator"
)

// Config holds server configuration
type Config struct {
	Address string

	// Fatoora credentials; submission endpoints return 503 when unset
	Certificate string
	Secret      string
	Environment string

	// FatooraBaseURL overrides the API base URL, for tests
	FatooraBaseURL string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	Logger       zerolog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config  *Config
	router  *gin.Engine
	fatoora *fatoora.Client
	now     func() time.Time
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	var client *fatoora.Client
	if config.Certificate != "" && config.Secret != "" {
		opts := []fatoora.ClientOption{
			fatoora.WithEnvironment(config.Environment),
			fatoora.WithLogger(config.Logger),
		}
		if config.FatooraBaseURL != "" {
			opts = append(opts, fatoora.WithBaseURL(config.FatooraBaseURL))
		}
		client = fatoora.NewClient(config.Certificate, config.Secret, opts...)
	}

	s := &Server{
		config:  config,
		router:  router,
		fatoora: client,
		now:     time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices", s.handleGenerate)
		v1.POST("/invoices/validate", s.handleValidate)
		v1.POST("/invoices/sign", s.handleSign)
		v1.POST("/invoices/submit", s.handleSubmit)
		v1.POST("/invoices/compliance", s.handleComplianceCheck)

		v1.POST("/qr", s.handleEncodeQR)
		v1.POST("/qr/decode", s.handleDecodeQR)

		v1.POST("/csr", s.handleCSR)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	now := s.now()
	b := builder.New(builder.WithClock(func() time.Time { return now }))

	// Embed a Phase 1 QR computed from the request when none was given
	if req.QRData == "" && len(req.Items) > 0 && req.Seller.VATNumber != "" {
		if payload, qrErr := builder.PhaseOneQR(req, now); qrErr == nil {
			req.QRData = payload
		}
	}

	result, err := b.Build(req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		XML:       result.XML,
		UUID:      result.UUID,
		QRBase64:  req.QRData,
		IssueTime: result.IssueTime,
		Totals:    result.Totals,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	result := validator.Validate(string(body))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEncodeQR(c *gin.Context) {
	var req QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	payload, err := tlv.Encode(tlv.Fields{
		SellerName:     req.SellerName,
		VATNumber:      req.VATNumber,
		Timestamp:      req.Timestamp,
		TotalAmount:    req.TotalAmount,
		VATAmount:      req.VATAmount,
		InvoiceHash:    req.InvoiceHash,
		ECDSASignature: req.ECDSASignature,
		ECDSAPublicKey: req.ECDSAPublicKey,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, QRResponse{QRBase64: payload})
}

func (s *Server) handleDecodeQR(c *gin.Context) {
	var req DecodeQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	decoded, err := tlv.DecodeNamed(req.QRBase64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, decoded)
}

func (s *Server) handleSign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	key, err := signing.ParsePrivateKeyPEM([]byte(req.PrivateKeyPEM))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to load private key: " + err.Error()})
		return
	}

	signer := signing.NewSigner(req.CertificatePEM, key)
	result, err := signer.Sign([]byte(req.InvoiceXML))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, SignResponse{
		SignedXML:   string(result.SignedXML),
		InvoiceHash: result.InvoiceHash,
		QRBase64:    result.QRData,
	})
}

func (s *Server) handleCSR(c *gin.Context) {
	var req CSRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	key, err := signing.GeneratePrivateKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key generation failed: " + err.Error()})
		return
	}

	csrPEM, err := signing.GenerateCSR(key, signing.CSRSubject{
		CommonName:         req.CommonName,
		Organization:       req.Organization,
		OrganizationalUnit: req.OrganizationalUnit,
		Country:            req.Country,
		SerialNumber:       req.SerialNumber,
		InvoiceType:        req.InvoiceType,
		Location:           req.Location,
		Industry:           req.Industry,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	keyPEM, err := signing.EncodePrivateKeyPEM(key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, CSRResponse{
		CSRPEM:        string(csrPEM),
		PrivateKeyPEM: string(keyPEM),
	})
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if s.fatoora == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "invoice submission unavailable",
			"details": "fatoora certificate and secret not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), fatoora.DefaultTimeout)
	defer cancel()

	invoiceB64 := base64.StdEncoding.EncodeToString([]byte(req.SignedXML))

	var resp *fatoora.SubmissionResponse
	var err error
	if req.Mode == "clearance" {
		resp, err = s.fatoora.ClearInvoice(ctx, invoiceB64, req.InvoiceHash, req.UUID)
	} else {
		resp, err = s.fatoora.ReportInvoice(ctx, invoiceB64, req.InvoiceHash, req.UUID)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleComplianceCheck(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if s.fatoora == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "compliance check unavailable",
			"details": "fatoora certificate and secret not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), fatoora.DefaultTimeout)
	defer cancel()

	invoiceB64 := base64.StdEncoding.EncodeToString([]byte(req.SignedXML))

	resp, err := s.fatoora.CheckCompliance(ctx, invoiceB64, req.InvoiceHash, req.UUID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
