package validator_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoubleH10/zatca-mcp/internal/builder"
	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/validator"
)

func buildXML(t *testing.T, mutate func(*model.GenerateRequest)) string {
	t.Helper()
	req := model.GenerateRequest{
		InvoiceType:   model.TypeStandard,
		InvoiceNumber: "INV-2024-001",
		IssueDate:     "2024-01-15",
		Seller: model.Party{
			Name:      "Fikrah Tech",
			VATNumber: "300000000000003",
			Address:   "123 King Fahd Road",
			City:      "Riyadh",
		},
		Buyer: model.Party{
			Name:      "Test Customer",
			VATNumber: "310000000000003",
		},
		Items: []model.LineItemInput{
			{Name: "Consulting", Quantity: json.Number("1"), UnitPrice: json.Number("1000.00")},
		},
	}
	if mutate != nil {
		mutate(&req)
	}

	result, err := builder.New().Build(req)
	require.NoError(t, err)
	return result.XML
}

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestValidate_BuiltInvoicePasses(t *testing.T) {
	result := validator.Validate(buildXML(t, nil))

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 14, result.ChecksRun)
}

func TestValidate_MalformedXML(t *testing.T) {
	result := validator.Validate("<Invoice><unclosed>")

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Invalid XML")
}

func TestValidate_EmptyDocument(t *testing.T) {
	result := validator.Validate("")
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
}

func TestValidate_MissingFields(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
</Invoice>`

	result := validator.Validate(xml)

	assert.False(t, result.IsValid)
	for _, code := range []string{"BR-01", "BR-02", "BR-03", "BR-04", "BR-05", "BR-06", "BR-07", "BR-10", "BR-12", "BR-13"} {
		assert.True(t, hasPrefix(result.Errors, code+":"), "expected %s error", code)
	}
	assert.Equal(t, 14, result.ChecksRun)
}

func TestValidate_BadIssueDateFormat(t *testing.T) {
	xml := buildXML(t, nil)
	xml = replaceElementText(t, xml, "IssueDate", "15/01/2024")

	result := validator.Validate(xml)
	assert.False(t, result.IsValid)
	assert.True(t, hasPrefix(result.Errors, "BR-02:"))
}

func TestValidate_InvalidTypeCode(t *testing.T) {
	xml := buildXML(t, nil)
	xml = replaceElementText(t, xml, "InvoiceTypeCode", "999")

	result := validator.Validate(xml)
	assert.False(t, result.IsValid)
	assert.True(t, hasPrefix(result.Errors, "BR-03:"))
}

func TestValidate_SellerVATViolationsReportedIndividually(t *testing.T) {
	xml := buildXML(t, nil)
	xml = replaceElementText(t, xml, "CompanyID", "100000000000001")

	result := validator.Validate(xml)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "BR-06: Seller VAT - VAT number must start with 3")
	assert.Contains(t, result.Errors, "BR-06: Seller VAT - VAT number must end with 3")
}

func TestValidate_StandardInvoiceRequiresBuyerVAT(t *testing.T) {
	// Build a simplified invoice (no buyer VAT allowed at build time),
	// then flip its subtype marker to standard
	xml := buildXML(t, func(r *model.GenerateRequest) {
		r.InvoiceType = model.TypeSimplified
		r.Buyer.VATNumber = ""
	})

	result := validator.Validate(xml)
	assert.True(t, result.IsValid, "simplified invoice without buyer VAT is fine")

	tampered := strings.Replace(xml, model.SubtypeSimplified, model.SubtypeStandard, 1)
	result = validator.Validate(tampered)
	assert.False(t, result.IsValid)
	assert.True(t, hasPrefix(result.Errors, "BR-08:"))
}

func TestValidate_TamperedLineAmount(t *testing.T) {
	xml := buildXML(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	line := doc.FindElement("//cac:InvoiceLine/cbc:LineExtensionAmount")
	require.NotNil(t, line)
	line.SetText("999.00")
	tampered, err := doc.WriteToString()
	require.NoError(t, err)

	result := validator.Validate(tampered)
	assert.False(t, result.IsValid)
	assert.True(t, hasPrefix(result.Errors, "BR-11: Line 1"))
}

func TestValidate_LineMismatchWithinToleranceAccepted(t *testing.T) {
	xml := buildXML(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	line := doc.FindElement("//cac:InvoiceLine/cbc:LineExtensionAmount")
	require.NotNil(t, line)
	line.SetText("1000.01")
	nudged, err := doc.WriteToString()
	require.NoError(t, err)

	result := validator.Validate(nudged)
	assert.False(t, hasPrefix(result.Errors, "BR-11:"))
}

func TestValidate_TotalsMismatch(t *testing.T) {
	xml := buildXML(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	inclusive := doc.FindElement("//cac:LegalMonetaryTotal/cbc:TaxInclusiveAmount")
	require.NotNil(t, inclusive)
	inclusive.SetText("9999.00")
	tampered, err := doc.WriteToString()
	require.NoError(t, err)

	result := validator.Validate(tampered)
	assert.False(t, result.IsValid)
	assert.True(t, hasPrefix(result.Errors, "BR-14:"))
}

func TestValidate_UnparsableLineMathWarns(t *testing.T) {
	xml := buildXML(t, nil)
	xml = replaceElementText(t, xml, "InvoicedQuantity", "many")

	result := validator.Validate(xml)
	assert.True(t, hasPrefix(result.Warnings, "BR-11:"))
	assert.False(t, hasPrefix(result.Errors, "BR-11:"))
}

func TestValidate_CreditNote(t *testing.T) {
	withRefs := func(r *model.GenerateRequest) {
		r.InvoiceType = model.TypeCreditNote
		r.InvoiceNumber = "CN-2024-001"
		r.BillingReference = &model.BillingReference{ID: "INV-2024-001", IssueDate: "2024-01-15"}
		r.InstructionNote = "Customer requested full refund"
	}

	t.Run("complete credit note passes", func(t *testing.T) {
		result := validator.Validate(buildXML(t, withRefs))
		assert.True(t, result.IsValid)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 16, result.ChecksRun)
	})

	t.Run("missing billing reference fails BR-15", func(t *testing.T) {
		result := validator.Validate(buildXML(t, func(r *model.GenerateRequest) {
			withRefs(r)
			r.BillingReference = nil
		}))
		assert.False(t, result.IsValid)
		assert.True(t, hasPrefix(result.Errors, "BR-15:"))
	})

	t.Run("missing instruction note warns BR-16", func(t *testing.T) {
		result := validator.Validate(buildXML(t, func(r *model.GenerateRequest) {
			withRefs(r)
			r.InstructionNote = ""
		}))
		assert.True(t, result.IsValid)
		assert.True(t, hasPrefix(result.Warnings, "BR-16:"))
	})

	t.Run("debit note checks too", func(t *testing.T) {
		result := validator.Validate(buildXML(t, func(r *model.GenerateRequest) {
			withRefs(r)
			r.InvoiceType = model.TypeDebitNote
			r.InvoiceNumber = "DN-2024-001"
		}))
		assert.True(t, result.IsValid)
		assert.Equal(t, 16, result.ChecksRun)
	})

	t.Run("plain invoices skip note rules", func(t *testing.T) {
		result := validator.Validate(buildXML(t, nil))
		assert.Equal(t, 14, result.ChecksRun)
		assert.False(t, hasPrefix(result.Errors, "BR-15:"))
	})
}

func TestValidate_Warnings(t *testing.T) {
	t.Run("missing street address", func(t *testing.T) {
		result := validator.Validate(buildXML(t, func(r *model.GenerateRequest) {
			r.Seller.Address = ""
		}))
		assert.True(t, result.IsValid, "warnings never affect validity")
		assert.Contains(t, result.Warnings, "Seller street address is recommended")
	})

	t.Run("missing UUID", func(t *testing.T) {
		xml := buildXML(t, nil)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromString(xml))
		root := doc.Root()
		root.RemoveChild(doc.FindElement("//cbc:UUID"))
		stripped, err := doc.WriteToString()
		require.NoError(t, err)

		result := validator.Validate(stripped)
		assert.True(t, result.IsValid)
		assert.Contains(t, result.Warnings, "Invoice UUID is recommended")
	})
}

// replaceElementText rewrites the text of the first element with the
// given local tag
func replaceElementText(t *testing.T, xml, tag, text string) string {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	el := doc.FindElement("//cbc:" + tag)
	require.NotNil(t, el, "element not found: %s", tag)
	el.SetText(text)
	out, err := doc.WriteToString()
	require.NoError(t, err)
	return out
}
