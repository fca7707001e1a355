package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/signing"
)

var (
	signCertFile string
	signKeyFile  string
	signOutput   string
)

var signCmd = &cobra.Command{
	Use:   "sign <invoice.xml>",
	Short: "Sign an invoice with XAdES-BES",
	Long: `Digitally sign a UBL 2.1 invoice for ZATCA Phase 2.

The invoice is canonicalized and hashed, an XAdES-BES signature block is
injected into UBLExtensions, and the embedded QR code is rebuilt with
the Phase 2 tags (invoice hash, ECDSA signature, public key).

Example:
  zatca sign invoice.xml --cert cert.pem --key key.pem -o signed.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&signCertFile, "cert", "", "PEM certificate file")
	signCmd.Flags().StringVar(&signKeyFile, "key", "", "PEM private key file")
	signCmd.Flags().StringVarP(&signOutput, "output", "o", "", "Write the signed XML to a file instead of stdout")

	_ = signCmd.MarkFlagRequired("cert")
	_ = signCmd.MarkFlagRequired("key")
}

func runSign(cmd *cobra.Command, args []string) error {
	invoiceXML, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read invoice: %w", err)
	}

	certPEM, err := os.ReadFile(signCertFile)
	if err != nil {
		return fmt.Errorf("read certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(signKeyFile)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	key, err := signing.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return err
	}

	result, err := signing.NewSigner(string(certPEM), key).Sign(invoiceXML)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Invoice hash: %s\n", result.InvoiceHash)
	if result.QRData != "" {
		printVerbose("rebuilt QR payload (%d chars)\n", len(result.QRData))
	}

	if signOutput != "" {
		if err := os.WriteFile(signOutput, result.SignedXML, 0o644); err != nil {
			return fmt.Errorf("write signed invoice: %w", err)
		}
		fmt.Printf("Wrote %s\n", signOutput)
		return nil
	}

	fmt.Println(string(result.SignedXML))
	return nil
}
