package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/signing"
)

var (
	csrSubject signing.CSRSubject
	csrOut     string
	csrKeyOut  string
)

var csrCmd = &cobra.Command{
	Use:   "csr",
	Short: "Generate an ECDSA key and a ZATCA compliance CSR",
	Long: `Generate a fresh ECDSA private key and a certificate signing
request carrying the ZATCA-required subject attributes (device serial,
invoice type functionality map, location, and business category).

The CSR is submitted to the Fatoora portal to obtain a compliance CSID.

Example:
  zatca csr --common-name "Fikrah Tech EGS" --organization "Fikrah Tech" \
    --unit "Riyadh Branch" --serial "1-TST|2-TST|3-ed22f1d8" \
    -o csr.pem --key-out key.pem`,
	RunE: runCSR,
}

func init() {
	rootCmd.AddCommand(csrCmd)

	csrCmd.Flags().StringVar(&csrSubject.CommonName, "common-name", "", "CN subject field")
	csrCmd.Flags().StringVar(&csrSubject.Organization, "organization", "", "O subject field")
	csrCmd.Flags().StringVar(&csrSubject.OrganizationalUnit, "unit", "", "OU subject field")
	csrCmd.Flags().StringVar(&csrSubject.Country, "country", "SA", "C subject field")
	csrCmd.Flags().StringVar(&csrSubject.SerialNumber, "serial", "", "ZATCA device serial (SN)")
	csrCmd.Flags().StringVar(&csrSubject.InvoiceType, "invoice-type", "1100", "Invoice type functionality map (UID)")
	csrCmd.Flags().StringVar(&csrSubject.Location, "location", "", "Business location (title)")
	csrCmd.Flags().StringVar(&csrSubject.Industry, "industry", "", "Business category")
	csrCmd.Flags().StringVarP(&csrOut, "output", "o", "csr.pem", "CSR output file")
	csrCmd.Flags().StringVar(&csrKeyOut, "key-out", "key.pem", "Private key output file")

	for _, required := range []string{"common-name", "organization", "unit"} {
		_ = csrCmd.MarkFlagRequired(required)
	}
}

func runCSR(cmd *cobra.Command, args []string) error {
	key, err := signing.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	csrPEM, err := signing.GenerateCSR(key, csrSubject)
	if err != nil {
		return err
	}

	keyPEM, err := signing.EncodePrivateKeyPEM(key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(csrKeyOut, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(csrOut, csrPEM, 0o644); err != nil {
		return fmt.Errorf("write CSR: %w", err)
	}

	fmt.Printf("Wrote %s and %s\n", csrOut, csrKeyOut)
	return nil
}
