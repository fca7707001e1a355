package tlv_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoubleH10/zatca-mcp/internal/tlv"
)

func sampleFields() tlv.Fields {
	return tlv.Fields{
		SellerName:  "Fikrah Tech",
		VATNumber:   "300000000000003",
		Timestamp:   "2024-01-15T10:30:00Z",
		TotalAmount: "1150.00",
		VATAmount:   "150.00",
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	fields := sampleFields()

	encoded, err := tlv.Encode(fields)
	require.NoError(t, err)

	decoded, err := tlv.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{
		1: "Fikrah Tech",
		2: "300000000000003",
		3: "2024-01-15T10:30:00Z",
		4: "1150.00",
		5: "150.00",
	}, decoded)
}

func TestEncodeDecode_ArabicText(t *testing.T) {
	fields := sampleFields()
	fields.SellerName = "شركة فكرة للتقنية"

	encoded, err := tlv.Encode(fields)
	require.NoError(t, err)

	decoded, err := tlv.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "شركة فكرة للتقنية", decoded[1])
}

func TestEncode_Phase2Tags(t *testing.T) {
	fields := sampleFields()
	fields.InvoiceHash = "aGFzaA=="
	fields.ECDSASignature = "c2ln"
	fields.ECDSAPublicKey = "a2V5"

	encoded, err := tlv.Encode(fields)
	require.NoError(t, err)

	decoded, err := tlv.Decode(encoded)
	require.NoError(t, err)
	assert.Len(t, decoded, 8)
	assert.Equal(t, "aGFzaA==", decoded[6])
	assert.Equal(t, "c2ln", decoded[7])
	assert.Equal(t, "a2V5", decoded[8])

	// Raw byte layout: tags ascend 1..8 left to right
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var order []byte
	for i := 0; i < len(raw); i += 2 + int(raw[i+1]) {
		order = append(order, raw[i])
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, order)
}

func TestEncode_ValueAt255Bytes(t *testing.T) {
	fields := sampleFields()
	fields.SellerName = strings.Repeat("a", 255)

	encoded, err := tlv.Encode(fields)
	require.NoError(t, err)

	decoded, err := tlv.Decode(encoded)
	require.NoError(t, err)
	assert.Len(t, decoded[1], 255)
}

func TestEncode_ValueOver255Bytes(t *testing.T) {
	fields := sampleFields()
	fields.SellerName = strings.Repeat("a", 256)

	_, err := tlv.Encode(fields)
	require.Error(t, err)

	var encErr *tlv.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 1, encErr.Tag)
	assert.Equal(t, 256, encErr.Size)
}

func TestEncode_MultibyteLengthCountsBytes(t *testing.T) {
	// 128 Arabic letters are 256 UTF-8 bytes, over the limit even though
	// the rune count is well under 255
	fields := sampleFields()
	fields.SellerName = strings.Repeat("م", 128)

	_, err := tlv.Encode(fields)
	var encErr *tlv.EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestEncode_EmptyValue(t *testing.T) {
	fields := sampleFields()
	fields.VATAmount = ""

	encoded, err := tlv.Encode(fields)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// Last segment is tag 5 with zero length and no value bytes
	assert.Equal(t, byte(5), raw[len(raw)-2])
	assert.Equal(t, byte(0), raw[len(raw)-1])

	decoded, err := tlv.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "", decoded[5])
}

func TestDecode_Truncated(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x01})

	_, err := tlv.Decode(payload)
	require.Error(t, err)

	var truncErr *tlv.TruncatedError
	require.ErrorAs(t, err, &truncErr)
	assert.Equal(t, 0, truncErr.Offset)
}

func TestDecode_LengthMismatch(t *testing.T) {
	// Tag 1 claims 10 bytes but only 2 follow
	payload := base64.StdEncoding.EncodeToString([]byte{0x01, 0x0A, 'a', 'b'})

	_, err := tlv.Decode(payload)
	require.Error(t, err)

	var lenErr *tlv.LengthMismatchError
	require.ErrorAs(t, err, &lenErr)
	assert.Equal(t, 1, lenErr.Tag)
	assert.Equal(t, 10, lenErr.Declared)
	assert.Equal(t, 2, lenErr.Remaining)
}

func TestDecode_InvalidBase64(t *testing.T) {
	_, err := tlv.Decode("not base64!!!")
	require.Error(t, err)
}

func TestDecode_DuplicateTagLastWins(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{
		0x01, 0x05, 'f', 'i', 'r', 's', 't',
		0x01, 0x04, 'l', 'a', 's', 't',
	})

	decoded, err := tlv.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "last", decoded[1])
}

func TestDecodeNamed(t *testing.T) {
	encoded, err := tlv.Encode(sampleFields())
	require.NoError(t, err)

	named, err := tlv.DecodeNamed(encoded)
	require.NoError(t, err)

	assert.Equal(t, "Fikrah Tech", named["seller_name"])
	assert.Equal(t, "300000000000003", named["vat_number"])
	assert.Equal(t, "2024-01-15T10:30:00Z", named["timestamp"])
	assert.Equal(t, "1150.00", named["total_amount"])
	assert.Equal(t, "150.00", named["vat_amount"])
}

func TestDecodeNamed_UnknownTag(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0xFA, 0x02, 'h', 'i'})

	named, err := tlv.DecodeNamed(payload)
	require.NoError(t, err)
	assert.Equal(t, "hi", named["tag_250"])
}
