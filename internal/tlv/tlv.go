// Package tlv implements the Tag-Length-Value binary encoding mandated by
// ZATCA for invoice QR codes.
//
// Each segment is one tag byte (0x01-0x09), one length byte, and a UTF-8
// value of at most 255 bytes. Tags 1-5 are mandatory on every invoice;
// tags 6-8 carry Phase 2 signature data; tag 9 is reserved for the stamp.
package tlv

import (
	"encoding/base64"
	"fmt"
)

// Tag numbers defined by ZATCA
const (
	TagSellerName     = 1
	TagVATNumber      = 2
	TagTimestamp      = 3
	TagTotalAmount    = 4
	TagVATAmount      = 5
	TagInvoiceHash    = 6
	TagECDSASignature = 7
	TagECDSAPublicKey = 8
	TagECDSAStamp     = 9
)

// TagNames maps tag numbers to their symbolic names
var TagNames = map[int]string{
	TagSellerName:     "seller_name",
	TagVATNumber:      "vat_number",
	TagTimestamp:      "timestamp",
	TagTotalAmount:    "total_amount",
	TagVATAmount:      "vat_amount",
	TagInvoiceHash:    "invoice_hash",
	TagECDSASignature: "ecdsa_signature",
	TagECDSAPublicKey: "ecdsa_public_key",
	TagECDSAStamp:     "ecdsa_stamp",
}

// Fields holds the values encoded into a QR payload. The Phase 2 fields
// are optional and are emitted only when non-empty, after tags 1-5.
type Fields struct {
	SellerName  string
	VATNumber   string
	Timestamp   string
	TotalAmount string
	VATAmount   string

	// Phase 2
	InvoiceHash    string
	ECDSASignature string
	ECDSAPublicKey string
}

// EncodingError reports a value that cannot be represented as a TLV
// segment: a UTF-8 encoding longer than 255 bytes, or a tag outside 1-9.
type EncodingError struct {
	Tag     int
	Size    int
	Message string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("tlv encode: tag %d: %s", e.Tag, e.Message)
}

// TruncatedError reports a payload that ends before a complete tag and
// length byte could be read.
type TruncatedError struct {
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("tlv decode: truncated data at position %d", e.Offset)
}

// LengthMismatchError reports a segment whose declared length exceeds the
// bytes remaining in the payload.
type LengthMismatchError struct {
	Tag       int
	Declared  int
	Remaining int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("tlv decode: tag %d claims length %d but only %d bytes remain",
		e.Tag, e.Declared, e.Remaining)
}

// appendSegment appends one tag-length-value segment to buf
func appendSegment(buf []byte, tag int, value string) ([]byte, error) {
	if tag < 1 || tag > 9 {
		return nil, &EncodingError{Tag: tag, Message: fmt.Sprintf("invalid tag number %d (must be 1-9)", tag)}
	}
	valueBytes := []byte(value)
	if len(valueBytes) > 255 {
		return nil, &EncodingError{
			Tag:     tag,
			Size:    len(valueBytes),
			Message: fmt.Sprintf("value too long: %d bytes (max 255)", len(valueBytes)),
		}
	}
	buf = append(buf, byte(tag), byte(len(valueBytes)))
	return append(buf, valueBytes...), nil
}

// Encode serializes the fields as TLV bytes and returns the standard
// base64 encoding used in invoice QR codes.
func Encode(f Fields) (string, error) {
	segments := []struct {
		tag      int
		value    string
		optional bool
	}{
		{TagSellerName, f.SellerName, false},
		{TagVATNumber, f.VATNumber, false},
		{TagTimestamp, f.Timestamp, false},
		{TagTotalAmount, f.TotalAmount, false},
		{TagVATAmount, f.VATAmount, false},
		{TagInvoiceHash, f.InvoiceHash, true},
		{TagECDSASignature, f.ECDSASignature, true},
		{TagECDSAPublicKey, f.ECDSAPublicKey, true},
	}

	var buf []byte
	var err error
	for _, s := range segments {
		if s.optional && s.value == "" {
			continue
		}
		buf, err = appendSegment(buf, s.tag, s.value)
		if err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decode parses a base64 TLV payload into a tag -> value map, scanning
// strictly left to right. A duplicated tag overwrites the earlier value
// (last write wins).
func Decode(payload string) (map[int]string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("tlv decode: invalid base64: %w", err)
	}

	result := make(map[int]string)
	i := 0
	for i < len(data) {
		if i+1 >= len(data) {
			return nil, &TruncatedError{Offset: i}
		}
		tag := int(data[i])
		length := int(data[i+1])
		if i+2+length > len(data) {
			return nil, &LengthMismatchError{
				Tag:       tag,
				Declared:  length,
				Remaining: len(data) - i - 2,
			}
		}
		result[tag] = string(data[i+2 : i+2+length])
		i += 2 + length
	}
	return result, nil
}

// DecodeNamed decodes a payload and translates tag numbers to their
// symbolic names. Unrecognized tags are kept as "tag_<n>".
func DecodeNamed(payload string) (map[string]string, error) {
	raw, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	named := make(map[string]string, len(raw))
	for tag, value := range raw {
		name, ok := TagNames[tag]
		if !ok {
			name = fmt.Sprintf("tag_%d", tag)
		}
		named[name] = value
	}
	return named, nil
}
