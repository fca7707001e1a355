// Package validator re-derives expected values from a UBL 2.1 invoice
// document and checks it against the ZATCA business rules.
//
// The validator only reads: it never corrects a bad total, it reports the
// mismatch. All rule checks run independently; a failing check appends to
// the error or warning list and never short-circuits the rest. Element
// lookup matches on local names, so documents using non-canonical
// namespace prefixes still validate.
package validator

import (
	"fmt"
	"regexp"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/money"
	"github.com/DoubleH10/zatca-mcp/internal/vat"
)

// Rule counts: the base battery always runs; the billing-reference and
// instruction-note rules apply only to credit and debit notes.
const (
	baseChecks = 14
	noteChecks = 2
)

var issueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate parses an invoice document and runs the full rule battery.
// A document that cannot be parsed yields a single structural error.
func Validate(invoiceXML string) *model.ValidationResult {
	result := &model.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(invoiceXML); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid XML: %v", err))
		return result
	}
	if doc.Root() == nil {
		result.Errors = append(result.Errors, "Invalid XML: document has no root element")
		return result
	}
	root := doc.Root()

	v := &run{result: result}

	// BR-01: invoice ID
	invoiceID := findText(root, "ID")
	if invoiceID == "" {
		v.errorf("BR-01: Invoice ID (cbc:ID) is mandatory")
	}

	// BR-02: issue date present and well-formed
	issueDate := findText(root, "IssueDate")
	if issueDate == "" {
		v.errorf("BR-02: Issue Date (cbc:IssueDate) is mandatory")
	} else if !issueDatePattern.MatchString(issueDate) {
		v.errorf("BR-02: Issue Date must be YYYY-MM-DD format, got: %s", issueDate)
	}

	// BR-03: invoice type code
	typeCode := findText(root, "InvoiceTypeCode")
	switch typeCode {
	case "":
		v.errorf("BR-03: Invoice Type Code is mandatory")
	case model.TypeCodeInvoice, model.TypeCodeCreditNote, model.TypeCodeDebitNote:
	default:
		v.errorf("BR-03: Invalid Invoice Type Code: %s", typeCode)
	}

	// BR-04: currency
	if findText(root, "DocumentCurrencyCode") == "" {
		v.errorf("BR-04: Document Currency Code is mandatory")
	}

	// BR-05: seller name
	if findText(root, "AccountingSupplierParty", "Party", "PartyLegalEntity", "RegistrationName") == "" {
		v.errorf("BR-05: Seller name is mandatory")
	}

	// BR-06: seller VAT format
	sellerVAT := findText(root, "AccountingSupplierParty", "Party", "PartyTaxScheme", "CompanyID")
	if sellerVAT == "" {
		v.errorf("BR-06: Seller VAT number is mandatory")
	} else {
		for _, violation := range vat.ValidateNumber(sellerVAT) {
			v.errorf("BR-06: Seller VAT - %s", violation)
		}
	}

	// BR-07: buyer name
	if findText(root, "AccountingCustomerParty", "Party", "PartyLegalEntity", "RegistrationName") == "" {
		v.errorf("BR-07: Buyer name is mandatory")
	}

	// BR-08: standard (B2B) invoices need a buyer VAT
	subtype := ""
	if el := findElement(root, "InvoiceTypeCode"); el != nil {
		subtype = el.SelectAttrValue("name", "")
	}
	if len(subtype) >= 2 && subtype[:2] == "01" {
		if findText(root, "AccountingCustomerParty", "Party", "PartyTaxScheme", "CompanyID") == "" {
			v.errorf("BR-08: Buyer VAT number is mandatory for standard (B2B) invoices")
		}
	}

	// BR-10: at least one line
	lines := findElements(root, "InvoiceLine")
	if len(lines) == 0 {
		v.errorf("BR-10: Invoice must have at least one line item")
	}

	// BR-11: per-line arithmetic
	for i, line := range lines {
		v.checkLineMath(i+1, line)
	}

	// BR-12: aggregate tax amount
	taxAmountText := findText(root, "TaxTotal", "TaxAmount")
	if taxAmountText == "" {
		v.errorf("BR-12: Tax total is mandatory")
	}

	// BR-13: payable amount
	if findText(root, "LegalMonetaryTotal", "PayableAmount") == "" {
		v.errorf("BR-13: Payable amount is mandatory")
	}

	// BR-14: cross-check declared totals
	v.checkTotals(
		findText(root, "LegalMonetaryTotal", "TaxExclusiveAmount"),
		taxAmountText,
		findText(root, "LegalMonetaryTotal", "TaxInclusiveAmount"),
	)

	result.ChecksRun = baseChecks

	// BR-15/BR-16 apply to credit and debit notes only
	if typeCode == model.TypeCodeCreditNote || typeCode == model.TypeCodeDebitNote {
		result.ChecksRun += noteChecks

		if findText(root, "BillingReference", "InvoiceDocumentReference", "ID") == "" {
			v.errorf("BR-15: Credit/debit notes must reference the original invoice (cac:BillingReference)")
		}
		if findText(root, "PaymentMeans", "InstructionNote") == "" {
			v.warnf("BR-16: Credit/debit notes should state a reason (cbc:InstructionNote)")
		}
	}

	// Non-blocking recommendations
	if findText(root, "UUID") == "" {
		v.warnf("Invoice UUID is recommended")
	}
	if findText(root, "AccountingSupplierParty", "Party", "PostalAddress", "StreetName") == "" {
		v.warnf("Seller street address is recommended")
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

type run struct {
	result *model.ValidationResult
}

func (v *run) errorf(format string, args ...interface{}) {
	v.result.Errors = append(v.result.Errors, fmt.Sprintf(format, args...))
}

func (v *run) warnf(format string, args ...interface{}) {
	v.result.Warnings = append(v.result.Warnings, fmt.Sprintf(format, args...))
}

// checkLineMath recomputes quantity * price for one line and compares it
// to the declared line extension amount within the 0.01 tolerance.
// Unparsable figures degrade to a warning rather than an error.
func (v *run) checkLineMath(index int, line *etree.Element) {
	qtyText := findText(line, "InvoicedQuantity")
	priceText := findText(line, "Price", "PriceAmount")
	extText := findText(line, "LineExtensionAmount")
	if qtyText == "" || priceText == "" || extText == "" {
		return
	}

	qty, err1 := decimal.NewFromString(qtyText)
	price, err2 := decimal.NewFromString(priceText)
	ext, err3 := decimal.NewFromString(extText)
	if err1 != nil || err2 != nil || err3 != nil {
		v.warnf("BR-11: Could not validate math on line %d", index)
		return
	}

	expected := money.Round2(qty.Mul(price))
	if !money.WithinTolerance(expected, ext) {
		v.errorf("BR-11: Line %d total mismatch: %s x %s = %s, got %s",
			index, qty, price, money.Format(expected), money.Format(ext))
	}
}

// checkTotals verifies tax_exclusive + tax = tax_inclusive
func (v *run) checkTotals(exclusiveText, taxText, inclusiveText string) {
	if exclusiveText == "" || taxText == "" || inclusiveText == "" {
		return
	}

	exclusive, err1 := decimal.NewFromString(exclusiveText)
	tax, err2 := decimal.NewFromString(taxText)
	inclusive, err3 := decimal.NewFromString(inclusiveText)
	if err1 != nil || err2 != nil || err3 != nil {
		v.warnf("BR-14: Could not cross-check invoice totals")
		return
	}

	expected := money.Round2(exclusive.Add(tax))
	if !money.WithinTolerance(expected, inclusive) {
		v.errorf("BR-14: Tax inclusive amount mismatch: %s + %s = %s, got %s",
			money.Format(exclusive), money.Format(tax), money.Format(expected), money.Format(inclusive))
	}
}
