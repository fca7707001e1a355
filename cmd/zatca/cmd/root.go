package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose     bool
	certificate string
	secret      string
	environment string
)

var rootCmd = &cobra.Command{
	Use:   "zatca",
	Short: "Generate, validate, sign, and submit ZATCA e-invoices",
	Long: `zatca is a CLI for Saudi Arabia's ZATCA e-invoicing standard.

Supports:
  - UBL 2.1 XML invoice generation (standard, simplified, credit/debit notes)
  - Business-rule validation
  - TLV QR code encoding and decoding
  - Phase 2: CSR generation, XAdES-BES signing, and Fatoora API submission

Examples:
  # Generate an invoice from a JSON request
  zatca generate request.json -o invoice.xml

  # Validate an invoice
  zatca validate invoice.xml

  # Decode a QR payload
  zatca decode AQtGaWtyYWggVGVjaA...

  # Sign and submit
  zatca sign invoice.xml --cert cert.pem --key key.pem -o signed.xml
  zatca submit signed.xml --hash <b64> --uuid <uuid>`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&certificate, "certificate", "", "Fatoora certificate, base64 (env: ZATCA_CERTIFICATE)")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "Fatoora API secret (env: ZATCA_SECRET)")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "Fatoora environment: sandbox or production (env: ZATCA_ENVIRONMENT)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if certificate == "" {
		certificate = os.Getenv("ZATCA_CERTIFICATE")
	}
	if secret == "" {
		secret = os.Getenv("ZATCA_SECRET")
	}
	if environment == "" {
		environment = os.Getenv("ZATCA_ENVIRONMENT")
	}
	if environment == "" {
		environment = "sandbox"
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
