package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/fatoora"
)

var (
	submitHash  string
	submitUUID  string
	submitMode  string
	submitCheck bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <signed.xml>",
	Short: "Submit a signed invoice to the Fatoora API",
	Long: `Submit a signed invoice to ZATCA's Fatoora API.

Use --mode reporting for simplified (B2C) invoices and --mode clearance
for standard (B2B) invoices. With --check the invoice is sent to the
compliance-check endpoint instead of being submitted.

Credentials come from --certificate/--secret or the ZATCA_CERTIFICATE
and ZATCA_SECRET environment variables.

Examples:
  zatca submit signed.xml --hash <b64-hash> --uuid <uuid>
  zatca submit signed.xml --hash <b64-hash> --uuid <uuid> --mode clearance
  zatca submit signed.xml --hash <b64-hash> --uuid <uuid> --check`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitHash, "hash", "", "Base64 SHA-256 invoice hash")
	submitCmd.Flags().StringVar(&submitUUID, "uuid", "", "Invoice UUID")
	submitCmd.Flags().StringVar(&submitMode, "mode", "reporting", "Submission mode: reporting or clearance")
	submitCmd.Flags().BoolVar(&submitCheck, "check", false, "Run a compliance check instead of submitting")

	_ = submitCmd.MarkFlagRequired("hash")
	_ = submitCmd.MarkFlagRequired("uuid")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if certificate == "" || secret == "" {
		return fmt.Errorf("fatoora credentials required: set --certificate/--secret or ZATCA_CERTIFICATE/ZATCA_SECRET")
	}

	signedXML, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read invoice: %w", err)
	}
	invoiceB64 := base64.StdEncoding.EncodeToString(signedXML)

	client := fatoora.NewClient(certificate, secret, fatoora.WithEnvironment(environment))

	ctx, cancel := context.WithTimeout(context.Background(), fatoora.DefaultTimeout)
	defer cancel()

	var resp *fatoora.SubmissionResponse
	switch {
	case submitCheck:
		resp, err = client.CheckCompliance(ctx, invoiceB64, submitHash, submitUUID)
	case submitMode == "clearance":
		resp, err = client.ClearInvoice(ctx, invoiceB64, submitHash, submitUUID)
	case submitMode == "reporting":
		resp, err = client.ReportInvoice(ctx, invoiceB64, submitHash, submitUUID)
	default:
		return fmt.Errorf("unknown mode %q: use reporting or clearance", submitMode)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
