// Package signing implements the ZATCA Phase 2 cryptographic operations:
// ECDSA key and CSR generation, invoice canonicalization and hashing, and
// XAdES-BES signature injection.
//
// The canonical form of an invoice is its exclusive-C14N serialization
// with the UBLExtensions and Signature elements stripped; the base64
// SHA-256 of that form is both TLV tag 6 and the first SignedInfo
// reference digest.
package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// XML-DSig and XAdES namespaces
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"
)

// ZATCA-required CSR subject attributes outside the standard DN set
var (
	oidUserID           = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	oidTitle            = asn1.ObjectIdentifier{2, 5, 4, 12}
	oidBusinessCategory = asn1.ObjectIdentifier{2, 5, 4, 15}
)

// UnavailableError reports a signing capability that cannot be used
// because its key material is missing
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("signing unavailable: %s", e.Reason)
}

// GeneratePrivateKey generates an ECDSA private key on P-256
func GeneratePrivateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// EncodePrivateKeyPEM serializes a private key as PKCS#8 PEM
func EncodePrivateKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM loads an ECDSA private key from PKCS#8 or SEC1 PEM
func ParsePrivateKeyPEM(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("expected an ECDSA private key, got %T", parsed)
	}
	return key, nil
}

// CSRSubject carries the subject fields ZATCA requires on a compliance
// CSR. SerialNumber is the device serial, InvoiceType the functionality
// map (e.g. "1100"), Location and Industry the taxpayer's address and
// business category.
type CSRSubject struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	SerialNumber       string
	InvoiceType        string
	Location           string
	Industry           string
}

// GenerateCSR creates a PEM-encoded certificate signing request with the
// ZATCA subject attributes
func GenerateCSR(key *ecdsa.PrivateKey, subject CSRSubject) ([]byte, error) {
	country := subject.Country
	if country == "" {
		country = "SA"
	}

	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			Country:            []string{country},
			Organization:       []string{subject.Organization},
			OrganizationalUnit: []string{subject.OrganizationalUnit},
			CommonName:         subject.CommonName,
			SerialNumber:       subject.SerialNumber,
			Province:           []string{subject.Industry},
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidUserID, Value: subject.InvoiceType},
				{Type: oidTitle, Value: subject.Location},
				{Type: oidBusinessCategory, Value: subject.Industry},
			},
		},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, fmt.Errorf("create CSR: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}

// Canonicalize produces the exclusive-C14N form of an invoice with the
// UBLExtensions and Signature elements removed
func Canonicalize(invoiceXML []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(invoiceXML); err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty invoice document")
	}

	for _, child := range root.ChildElements() {
		if child.Tag == "UBLExtensions" || child.Tag == "Signature" {
			root.RemoveChild(child)
		}
	}

	return canonicalizeElement(root)
}

func canonicalizeElement(el *etree.Element) ([]byte, error) {
	canonicalizer := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
	out, err := canonicalizer.Canonicalize(el)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// HashInvoice computes the base64 SHA-256 digest of the canonicalized
// invoice (TLV tag 6)
func HashInvoice(invoiceXML []byte) (string, error) {
	canonical, err := Canonicalize(invoiceXML)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(digest[:]), nil
}

// SignHash signs the SHA-256 digest of data with ECDSA, returning the
// DER-encoded signature (TLV tag 7 carries its base64)
func SignHash(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// PublicKeyBytes returns the uncompressed public key point (TLV tag 8)
func PublicKeyBytes(key *ecdsa.PrivateKey) ([]byte, error) {
	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}
	return pub.Bytes(), nil
}

// pemToDER strips PEM armor and decodes the base64 body
func pemToDER(certPEM string) ([]byte, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in certificate")
	}
	return block.Bytes, nil
}
