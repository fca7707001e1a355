package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for the invoicing core.

The API provides endpoints for:
  - POST /api/v1/invoices             - Generate an invoice
  - POST /api/v1/invoices/validate    - Validate invoice XML
  - POST /api/v1/invoices/sign        - Sign an invoice (XAdES-BES)
  - POST /api/v1/invoices/submit      - Submit to the Fatoora API
  - POST /api/v1/invoices/compliance  - Fatoora compliance check
  - POST /api/v1/qr                   - Encode a TLV QR payload
  - POST /api/v1/qr/decode            - Decode a TLV QR payload
  - POST /api/v1/csr                  - Generate a key and CSR
  - GET  /health                      - Health check

Examples:
  # Start server on default port
  zatca serve

  # Start on custom port with Fatoora credentials
  zatca serve --address :8080 --certificate <b64-cert> --secret <secret>

  # Start in debug mode
  zatca serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	logLevel := zerolog.InfoLevel
	if serverDebug {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()

	config := &server.Config{
		Address:      serverAddr,
		Certificate:  certificate,
		Secret:       secret,
		Environment:  environment,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
		Logger:       logger,
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	logger.Info().Str("address", serverAddr).Str("environment", environment).Msg("starting server")
	return srv.Run()
}
