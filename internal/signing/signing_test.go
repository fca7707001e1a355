package signing_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/signing"
	"github.com/DoubleH10/zatca-mcp/internal/tlv"
)

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := signing.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

// selfSignedCert issues a throwaway certificate for the key so the
// XAdES CertDigest and X509Certificate elements have real content
func selfSignedCert(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Fikrah Tech EGS"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func buildInvoice(t *testing.T, qrData string) string {
	t.Helper()
	req := model.GenerateRequest{
		InvoiceType:   model.TypeSimplified,
		InvoiceNumber: "INV-2024-001",
		IssueDate:     "2024-01-15",
		Seller: model.Party{
			Name:      "Fikrah Tech",
			VATNumber: "300000000000003",
			Address:   "123 King Fahd Road",
			City:      "Riyadh",
		},
		Items: []model.LineItemInput{
			{Name: "Consulting", Quantity: json.Number("1"), UnitPrice: json.Number("1000.00")},
		},
		QRData: qrData,
	}
	result, err := builder.New().Build(req)
	require.NoError(t, err)
	return result.XML
}

func phase1QR(t *testing.T) string {
	t.Helper()
	payload, err := tlv.Encode(tlv.Fields{
		SellerName:  "Fikrah Tech",
		VATNumber:   "300000000000003",
		Timestamp:   "2024-01-15T10:30:00Z",
		TotalAmount: "1150.00",
		VATAmount:   "150.00",
	})
	require.NoError(t, err)
	return payload
}

func TestGeneratePrivateKey(t *testing.T) {
	key := generateKey(t)
	assert.Equal(t, elliptic.P256(), key.Curve)
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	key := generateKey(t)

	pemBytes, err := signing.EncodePrivateKeyPEM(key)
	require.NoError(t, err)
	assert.Contains(t, string(pemBytes), "PRIVATE KEY")

	loaded, err := signing.ParsePrivateKeyPEM(pemBytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestParsePrivateKeyPEM_Invalid(t *testing.T) {
	_, err := signing.ParsePrivateKeyPEM([]byte("not a key"))
	assert.Error(t, err)
}

func TestGenerateCSR(t *testing.T) {
	key := generateKey(t)

	csrPEM, err := signing.GenerateCSR(key, signing.CSRSubject{
		CommonName:         "Fikrah Tech EGS",
		Organization:       "Fikrah Tech",
		OrganizationalUnit: "Riyadh Branch",
		SerialNumber:       "1-TST|2-TST|3-ed22f1d8",
		InvoiceType:        "1100",
		Location:           "Riyadh",
		Industry:           "IT",
	})
	require.NoError(t, err)

	block, _ := pem.Decode(csrPEM)
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE REQUEST", block.Type)

	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())

	assert.Equal(t, "Fikrah Tech EGS", csr.Subject.CommonName)
	assert.Equal(t, []string{"SA"}, csr.Subject.Country)
	assert.Equal(t, []string{"Fikrah Tech"}, csr.Subject.Organization)
	assert.Equal(t, "1-TST|2-TST|3-ed22f1d8", csr.Subject.SerialNumber)
}

func TestCanonicalize_StripsExtensionsAndSignature(t *testing.T) {
	xml := `<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2">` +
		`<UBLExtensions><UBLExtension/></UBLExtensions>` +
		`<Signature>sig</Signature>` +
		`<ID>INV-1</ID></Invoice>`

	canonical, err := signing.Canonicalize([]byte(xml))
	require.NoError(t, err)

	assert.NotContains(t, string(canonical), "UBLExtensions")
	assert.NotContains(t, string(canonical), "Signature")
	assert.Contains(t, string(canonical), "INV-1")
}

func TestHashInvoice(t *testing.T) {
	xml := buildInvoice(t, "")

	hash, err := signing.HashInvoice([]byte(xml))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(hash)
	require.NoError(t, err)
	assert.Len(t, raw, sha256.Size)

	// Deterministic for identical input
	again, err := signing.HashInvoice([]byte(xml))
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestSignHash_Verifiable(t *testing.T) {
	key := generateKey(t)
	data := []byte("invoice hash bytes")

	sig, err := signing.SignHash(key, data)
	require.NoError(t, err)

	digest := sha256.Sum256(data)
	assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], sig))
}

func TestPublicKeyBytes_UncompressedPoint(t *testing.T) {
	key := generateKey(t)

	pub, err := signing.PublicKeyBytes(key)
	require.NoError(t, err)

	require.Len(t, pub, 65)
	assert.Equal(t, byte(0x04), pub[0])
}

func TestSigner_Sign(t *testing.T) {
	key := generateKey(t)
	cert := selfSignedCert(t, key)
	signer := signing.NewSigner(cert, key, signing.WithSigningClock(func() time.Time {
		return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	}))
	require.True(t, signer.Available())

	xml := buildInvoice(t, phase1QR(t))

	result, err := signer.Sign([]byte(xml))
	require.NoError(t, err)
	assert.NotEmpty(t, result.InvoiceHash)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(result.SignedXML))
	root := doc.Root()
	require.NotNil(t, root)

	// Signature block is the first child of the Invoice
	children := root.ChildElements()
	require.NotEmpty(t, children)
	assert.Equal(t, "UBLExtensions", children[0].Tag)
	require.NotNil(t, root.FindElement("//ds:Signature/ds:SignedInfo"))
	require.NotNil(t, root.FindElement("//xades:SignedProperties/xades:SignedSignatureProperties/xades:SigningTime"))
	assert.Equal(t, "2024-01-15T10:30:00Z",
		root.FindElement("//xades:SigningTime").Text())

	// QR rebuilt with the Phase 2 tags
	require.NotEmpty(t, result.QRData)
	decoded, err := tlv.Decode(result.QRData)
	require.NoError(t, err)
	assert.Equal(t, "Fikrah Tech", decoded[tlv.TagSellerName])
	assert.Equal(t, result.InvoiceHash, decoded[tlv.TagInvoiceHash])

	// Tag 7 signature verifies against tag 8's public key
	sigBytes, err := base64.StdEncoding.DecodeString(decoded[tlv.TagECDSASignature])
	require.NoError(t, err)
	hashBytes, err := base64.StdEncoding.DecodeString(result.InvoiceHash)
	require.NoError(t, err)
	digest := sha256.Sum256(hashBytes)
	assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], sigBytes))

	pubBytes, err := base64.StdEncoding.DecodeString(decoded[tlv.TagECDSAPublicKey])
	require.NoError(t, err)
	assert.Len(t, pubBytes, 65)

	// Embedded QR in the XML matches the returned payload
	qr := root.FindElement("//cac:AdditionalDocumentReference/cac:Attachment/cbc:EmbeddedDocumentBinaryObject")
	require.NotNil(t, qr)
	assert.Equal(t, result.QRData, qr.Text())
}

func TestSigner_SignWithoutQR(t *testing.T) {
	key := generateKey(t)
	signer := signing.NewSigner(selfSignedCert(t, key), key)

	result, err := signer.Sign([]byte(buildInvoice(t, "")))
	require.NoError(t, err)

	assert.Empty(t, result.QRData)
	assert.True(t, strings.Contains(string(result.SignedXML), "UBLExtensions"))
}

func TestSigner_Unavailable(t *testing.T) {
	signer := signing.NewSigner("", nil)
	assert.False(t, signer.Available())

	_, err := signer.Sign([]byte("<Invoice/>"))
	var unavailable *signing.UnavailableError
	require.ErrorAs(t, err, &unavailable)
}
