package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/model"
)

var (
	generateOutput string
	generateNoQR   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <request.json>",
	Short: "Generate a UBL 2.1 XML invoice from a JSON request",
	Long: `Generate a ZATCA-compliant UBL 2.1 XML invoice.

The request is a JSON document describing the invoice:

  {
    "invoice_type": "simplified",
    "invoice_number": "INV-2024-001",
    "issue_date": "2024-01-15",
    "seller": {"name": "Fikrah Tech", "vat_number": "300000000000003"},
    "buyer": {"name": "Walk-in Customer"},
    "items": [
      {"name": "Laptop", "quantity": 2, "unit_price": 3500.00}
    ]
  }

A Phase 1 QR code is computed from the request and embedded unless
--no-qr is set or the request carries its own qr_data. Use "-" to read
the request from stdin.

Examples:
  zatca generate request.json
  zatca generate request.json -o invoice.xml
  cat request.json | zatca generate -`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the invoice XML to a file instead of stdout")
	generateCmd.Flags().BoolVar(&generateNoQR, "no-qr", false, "Skip embedding a QR code")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	var req model.GenerateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}

	now := time.Now()
	if req.QRData == "" && !generateNoQR {
		payload, err := builder.PhaseOneQR(req, now)
		if err != nil {
			return err
		}
		req.QRData = payload
		printVerbose("embedded QR payload (%d chars)\n", len(payload))
	}

	result, err := builder.New(builder.WithClock(func() time.Time { return now })).Build(req)
	if err != nil {
		return err
	}

	printVerbose("invoice UUID: %s\n", result.UUID)

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, []byte(result.XML), 0o644); err != nil {
			return fmt.Errorf("write invoice: %w", err)
		}
		fmt.Printf("Wrote %s\n", generateOutput)
		return nil
	}

	fmt.Println(result.XML)
	return nil
}
