package signing

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/tlv"
)

// Signer applies XAdES-BES signatures to invoices. The zero value is not
// usable; construct with NewSigner.
type Signer struct {
	certPEM string
	key     *ecdsa.PrivateKey
	now     func() time.Time
}

// SignerOption configures a Signer
type SignerOption func(*Signer)

// WithSigningClock overrides the signing-time source, for deterministic
// output in tests
func WithSigningClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a signer from a PEM certificate and an ECDSA private
// key
func NewSigner(certPEM string, key *ecdsa.PrivateKey, opts ...SignerOption) *Signer {
	s := &Signer{
		certPEM: certPEM,
		key:     key,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the signer holds the key material it needs
func (s *Signer) Available() bool {
	return s.certPEM != "" && s.key != nil
}

// SignResult carries the outputs of signing an invoice
type SignResult struct {
	// SignedXML is the invoice with the XAdES-BES signature injected
	// as the first child of the Invoice element
	SignedXML []byte

	// InvoiceHash is the base64 SHA-256 of the canonicalized invoice
	InvoiceHash string

	// QRData is the rebuilt QR payload carrying tags 6-8, empty when
	// the invoice had no embedded QR to rebuild
	QRData string
}

// Sign hashes the invoice, injects an XAdES-BES signature wrapped in
// UBLExtensions, and rebuilds the embedded QR with the Phase 2 tags
func (s *Signer) Sign(invoiceXML []byte) (*SignResult, error) {
	if !s.Available() {
		return nil, &UnavailableError{Reason: "certificate and private key are required"}
	}

	invoiceHash, err := HashInvoice(invoiceXML)
	if err != nil {
		return nil, err
	}

	signedXML, err := s.injectSignature(invoiceXML, invoiceHash)
	if err != nil {
		return nil, err
	}

	// The QR signature covers the raw invoice hash bytes (TLV tag 7)
	hashBytes, err := base64.StdEncoding.DecodeString(invoiceHash)
	if err != nil {
		return nil, fmt.Errorf("decode invoice hash: %w", err)
	}
	signature, err := SignHash(s.key, hashBytes)
	if err != nil {
		return nil, err
	}
	pubKey, err := PublicKeyBytes(s.key)
	if err != nil {
		return nil, err
	}

	signedXML, qrData, err := rebuildQR(signedXML, invoiceHash,
		base64.StdEncoding.EncodeToString(signature),
		base64.StdEncoding.EncodeToString(pubKey))
	if err != nil {
		return nil, err
	}

	return &SignResult{
		SignedXML:   signedXML,
		InvoiceHash: invoiceHash,
		QRData:      qrData,
	}, nil
}

// injectSignature assembles the XAdES-BES structure and inserts it as
// the first child of the Invoice element
func (s *Signer) injectSignature(invoiceXML []byte, invoiceDigest string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(invoiceXML); err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty invoice document")
	}

	signingTime := s.now().UTC().Format("2006-01-02T15:04:05Z")
	signedProps, err := s.buildSignedProperties(signingTime)
	if err != nil {
		return nil, err
	}

	spCanonical, err := canonicalizeElement(signedProps)
	if err != nil {
		return nil, err
	}
	spSum := sha256.Sum256(spCanonical)
	spDigest := base64.StdEncoding.EncodeToString(spSum[:])

	signedInfo := buildSignedInfo(invoiceDigest, spDigest)

	siCanonical, err := canonicalizeElement(signedInfo)
	if err != nil {
		return nil, err
	}
	siSum := sha256.Sum256(siCanonical)
	signatureBytes, err := SignHash(s.key, siSum[:])
	if err != nil {
		return nil, err
	}

	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.AddChild(signedInfo)

	sv := sig.CreateElement("ds:SignatureValue")
	sv.SetText(base64.StdEncoding.EncodeToString(signatureBytes))

	keyInfo := sig.CreateElement("ds:KeyInfo")
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Cert := x509Data.CreateElement("ds:X509Certificate")
	x509Cert.SetText(stripPEMArmor(s.certPEM))

	obj := sig.CreateElement("ds:Object")
	qp := obj.CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("xmlns:xades", NamespaceXAdES)
	qp.CreateAttr("Target", "signature")
	qp.AddChild(signedProps)

	extensions := etree.NewElement("ext:UBLExtensions")
	extensions.CreateAttr("xmlns:ext", builder.NamespaceEXT)
	extension := extensions.CreateElement("ext:UBLExtension")
	content := extension.CreateElement("ext:ExtensionContent")
	content.AddChild(sig)

	root.InsertChildAt(0, extensions)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize signed invoice: %w", err)
	}
	return out, nil
}

// buildSignedProperties builds the XAdES SignedProperties element with
// the signing time and the certificate digest
func (s *Signer) buildSignedProperties(signingTime string) (*etree.Element, error) {
	certDER, err := pemToDER(s.certPEM)
	if err != nil {
		return nil, err
	}
	certSum := sha256.Sum256(certDER)
	certDigest := base64.StdEncoding.EncodeToString(certSum[:])

	sp := etree.NewElement("xades:SignedProperties")
	sp.CreateAttr("xmlns:xades", NamespaceXAdES)
	sp.CreateAttr("Id", "xadesSignedProperties")

	ssp := sp.CreateElement("xades:SignedSignatureProperties")
	st := ssp.CreateElement("xades:SigningTime")
	st.SetText(signingTime)

	sc := ssp.CreateElement("xades:SigningCertificate")
	cert := sc.CreateElement("xades:Cert")
	cd := cert.CreateElement("xades:CertDigest")

	dm := cd.CreateElement("ds:DigestMethod")
	dm.CreateAttr("xmlns:ds", NamespaceDS)
	dm.CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmlenc#sha256")
	dv := cd.CreateElement("ds:DigestValue")
	dv.SetText(certDigest)

	return sp, nil
}

// buildSignedInfo builds the ds:SignedInfo element carrying the invoice
// and SignedProperties reference digests
func buildSignedInfo(invoiceDigest, signedPropsDigest string) *etree.Element {
	si := etree.NewElement("ds:SignedInfo")
	si.CreateAttr("xmlns:ds", NamespaceDS)

	cm := si.CreateElement("ds:CanonicalizationMethod")
	cm.CreateAttr("Algorithm", "http://www.w3.org/2006/12/xml-c14n11")

	sm := si.CreateElement("ds:SignatureMethod")
	sm.CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256")

	ref1 := si.CreateElement("ds:Reference")
	ref1.CreateAttr("Id", "invoiceSignedData")
	ref1.CreateAttr("URI", "")
	transforms := ref1.CreateElement("ds:Transforms")
	transform := transforms.CreateElement("ds:Transform")
	transform.CreateAttr("Algorithm", "http://www.w3.org/TR/1999/REC-xpath-19991116")
	xpath := transform.CreateElement("ds:XPath")
	xpath.SetText("not(//ancestor-or-self::ext:UBLExtensions)")
	dm1 := ref1.CreateElement("ds:DigestMethod")
	dm1.CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmlenc#sha256")
	dv1 := ref1.CreateElement("ds:DigestValue")
	dv1.SetText(invoiceDigest)

	ref2 := si.CreateElement("ds:Reference")
	ref2.CreateAttr("Type", "http://www.w3.org/2000/09/xmldsig#SignatureProperties")
	ref2.CreateAttr("URI", "#xadesSignedProperties")
	dm2 := ref2.CreateElement("ds:DigestMethod")
	dm2.CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmlenc#sha256")
	dv2 := ref2.CreateElement("ds:DigestValue")
	dv2.SetText(signedPropsDigest)

	return si
}

// rebuildQR decodes the invoice's embedded QR payload, appends the
// Phase 2 tags, and writes the new payload back. Invoices without an
// embedded QR are returned unchanged with an empty payload.
func rebuildQR(signedXML []byte, invoiceHash, signatureB64, pubKeyB64 string) ([]byte, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return nil, "", fmt.Errorf("parse signed invoice: %w", err)
	}

	qrEl := findQRElement(doc.Root())
	if qrEl == nil || strings.TrimSpace(qrEl.Text()) == "" {
		return signedXML, "", nil
	}

	decoded, err := tlv.DecodeNamed(strings.TrimSpace(qrEl.Text()))
	if err != nil {
		return nil, "", fmt.Errorf("decode embedded QR: %w", err)
	}

	payload, err := tlv.Encode(tlv.Fields{
		SellerName:     decoded["seller_name"],
		VATNumber:      decoded["vat_number"],
		Timestamp:      decoded["timestamp"],
		TotalAmount:    decoded["total_amount"],
		VATAmount:      decoded["vat_amount"],
		InvoiceHash:    invoiceHash,
		ECDSASignature: signatureB64,
		ECDSAPublicKey: pubKeyB64,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode Phase 2 QR: %w", err)
	}

	qrEl.SetText(payload)
	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("serialize signed invoice: %w", err)
	}
	return out, payload, nil
}

// findQRElement locates the EmbeddedDocumentBinaryObject of the
// AdditionalDocumentReference whose ID is "QR"
func findQRElement(root *etree.Element) *etree.Element {
	if root == nil {
		return nil
	}
	for _, ref := range root.ChildElements() {
		if ref.Tag != "AdditionalDocumentReference" {
			continue
		}
		id := ref.FindElement("cbc:ID")
		if id == nil || id.Text() != "QR" {
			continue
		}
		if obj := ref.FindElement("cac:Attachment/cbc:EmbeddedDocumentBinaryObject"); obj != nil {
			return obj
		}
	}
	return nil
}

// stripPEMArmor removes the BEGIN/END lines and joins the base64 body
func stripPEMArmor(certPEM string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(certPEM), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
