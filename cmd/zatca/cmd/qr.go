package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/tlv"
)

var qrFields tlv.Fields

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Encode a TLV QR payload",
	Long: `Encode ZATCA QR code fields into a base64 TLV payload.

The five Phase 1 fields are required; the Phase 2 fields (hash,
signature, public key) are optional and usually produced by "zatca sign".

Example:
  zatca qr --seller "Fikrah Tech" --vat 300000000000003 \
    --timestamp 2024-01-15T10:30:00Z --total 1150.00 --vat-amount 150.00`,
	RunE: runQR,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <qr-base64>",
	Short: "Decode a TLV QR payload",
	Long: `Decode a base64 TLV QR payload into its named fields.

Example:
  zatca decode AQtGaWtyYWggVGVjaAIPMzAwMDAwMDAwMDAwMDAz...`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(qrCmd)
	rootCmd.AddCommand(decodeCmd)

	qrCmd.Flags().StringVar(&qrFields.SellerName, "seller", "", "Seller name")
	qrCmd.Flags().StringVar(&qrFields.VATNumber, "vat", "", "Seller VAT number")
	qrCmd.Flags().StringVar(&qrFields.Timestamp, "timestamp", "", "Invoice timestamp (ISO 8601)")
	qrCmd.Flags().StringVar(&qrFields.TotalAmount, "total", "", "Total amount with VAT")
	qrCmd.Flags().StringVar(&qrFields.VATAmount, "vat-amount", "", "Total VAT amount")
	qrCmd.Flags().StringVar(&qrFields.InvoiceHash, "hash", "", "Invoice hash, base64 (Phase 2)")
	qrCmd.Flags().StringVar(&qrFields.ECDSASignature, "signature", "", "ECDSA signature, base64 (Phase 2)")
	qrCmd.Flags().StringVar(&qrFields.ECDSAPublicKey, "public-key", "", "ECDSA public key, base64 (Phase 2)")

	for _, required := range []string{"seller", "vat", "timestamp", "total", "vat-amount"} {
		_ = qrCmd.MarkFlagRequired(required)
	}
}

func runQR(cmd *cobra.Command, args []string) error {
	payload, err := tlv.Encode(qrFields)
	if err != nil {
		return err
	}
	fmt.Println(payload)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	decoded, err := tlv.DecodeNamed(args[0])
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(decoded)
}
