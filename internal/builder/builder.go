// Package builder assembles ZATCA-compliant UBL 2.1 invoice documents.
//
// The builder computes per-line and aggregate tax amounts from caller
// input, groups lines by (rate, category), and serializes a document with
// fixed element ordering. Build embeds whatever GenerateRequest.QRData
// carries; PhaseOneQR computes that payload over the final rounded
// totals for callers that want it embedded.
package builder

import (
	"regexp"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/money"
	"github.com/DoubleH10/zatca-mcp/internal/vat"
)

// UBL 2.1 namespaces
const (
	NamespaceInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NamespaceEXT     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

const defaultCurrency = "SAR"

var issueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Builder produces invoice documents. The zero-value configuration
// issues a fresh UUID and current UTC time per build; both are
// overridable for deterministic output.
type Builder struct {
	newUUID func() string
	now     func() time.Time
}

// Option configures a Builder
type Option func(*Builder)

// WithUUID pins the invoice UUID instead of generating one per build
func WithUUID(id string) Option {
	return func(b *Builder) {
		b.newUUID = func() string { return id }
	}
}

// WithClock pins the clock used for the issue time
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// New creates a Builder
func New(opts ...Option) *Builder {
	b := &Builder{
		newUUID: func() string { return uuid.NewString() },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a built invoice document together with the intermediate
// amounts the document was derived from
type Result struct {
	XML       string           `json:"xml"`
	UUID      string           `json:"uuid"`
	IssueTime string           `json:"issue_time"`
	Lines     []model.LineItem `json:"lines"`
	Groups    []model.TaxGroup `json:"groups"`
	Totals    model.Totals     `json:"totals"`
}

// Build validates the request, computes all amounts, and serializes the
// UBL 2.1 document. No partial document is produced on error.
func (b *Builder) Build(req model.GenerateRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lines, err := ParseItems(req.Items)
	if err != nil {
		return nil, err
	}

	groups := GroupLines(lines)
	totals := totalsOf(lines)

	id := b.newUUID()
	issueTime := b.now().UTC().Format("15:04:05")

	doc := b.buildDocument(req, id, issueTime, lines, groups, totals)
	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, model.NewValidationError("document", nil, "serialization failed: "+err.Error())
	}

	return &Result{
		XML:       xml,
		UUID:      id,
		IssueTime: issueTime,
		Lines:     lines,
		Groups:    groups,
		Totals:    totals,
	}, nil
}

// ComputeTotals runs the same parse-round-sum-round pipeline as Build
// without producing a document. Callers use it to derive the amounts the
// QR payload must carry.
func ComputeTotals(items []model.LineItemInput) (model.Totals, error) {
	lines, err := ParseItems(items)
	if err != nil {
		return model.Totals{}, err
	}
	return totalsOf(lines), nil
}

// ParseItems converts caller input into computed line items. Each line
// amount is rounded before aggregation; summing unrounded values and
// rounding once can differ by a cent.
func ParseItems(items []model.LineItemInput) ([]model.LineItem, error) {
	lines := make([]model.LineItem, 0, len(items))
	for i, item := range items {
		idx := i + 1
		if item.Name == "" {
			return nil, model.NewLineItemError(idx, "name", "required")
		}

		qty, err := decimal.NewFromString(item.Quantity.String())
		if err != nil {
			return nil, model.NewLineItemError(idx, "quantity", "must be numeric")
		}
		price, err := decimal.NewFromString(item.UnitPrice.String())
		if err != nil {
			return nil, model.NewLineItemError(idx, "unit_price", "must be numeric")
		}
		if !money.IsPositive(qty) {
			return nil, model.NewLineItemError(idx, "quantity", "must be positive")
		}
		if !money.IsNonNegative(price) {
			return nil, model.NewLineItemError(idx, "unit_price", "must be non-negative")
		}

		rate := money.DefaultVATRate
		if item.VATRate != "" {
			rate, err = decimal.NewFromString(item.VATRate.String())
			if err != nil {
				return nil, model.NewLineItemError(idx, "vat_rate", "must be numeric")
			}
		}
		category := item.VATCategory
		if category == "" {
			category = model.CategoryStandard
		}

		lineAmount := money.LineAmount(qty, price)
		lines = append(lines, model.LineItem{
			Name:        item.Name,
			Quantity:    qty,
			UnitPrice:   price,
			VATRate:     rate,
			VATCategory: category,
			LineAmount:  lineAmount,
			LineVAT:     money.LineVAT(lineAmount, rate),
		})
	}
	return lines, nil
}

// GroupLines aggregates lines by (rate, category), preserving first-seen
// order so the document's subtotal ordering is stable
func GroupLines(lines []model.LineItem) []model.TaxGroup {
	type key struct {
		rate     string
		category model.VATCategory
	}
	index := make(map[key]int)
	var groups []model.TaxGroup

	for _, line := range lines {
		// Round(4) normalizes numerically-equal rates ("0.15" vs "0.150")
		// onto one key
		k := key{rate: line.VATRate.Round(4).String(), category: line.VATCategory}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, model.TaxGroup{
				Rate:     line.VATRate,
				Category: line.VATCategory,
			})
		}
		groups[i].Taxable = groups[i].Taxable.Add(line.LineAmount)
		groups[i].Tax = groups[i].Tax.Add(line.LineVAT)
	}
	return groups
}

func totalsOf(lines []model.LineItem) model.Totals {
	taxExclusive := money.Zero
	totalVAT := money.Zero
	for _, line := range lines {
		taxExclusive = taxExclusive.Add(line.LineAmount)
		totalVAT = totalVAT.Add(line.LineVAT)
	}
	taxInclusive := money.Round2(taxExclusive.Add(totalVAT))
	return model.Totals{
		TaxExclusive: money.Round2(taxExclusive),
		TotalVAT:     money.Round2(totalVAT),
		TaxInclusive: taxInclusive,
		Payable:      taxInclusive,
	}
}

func validateRequest(req model.GenerateRequest) error {
	if req.InvoiceNumber == "" {
		return model.NewValidationError("invoice_number", nil, "required")
	}
	if !issueDatePattern.MatchString(req.IssueDate) {
		return model.NewValidationError("issue_date", req.IssueDate, "must be YYYY-MM-DD")
	}
	if len(req.Items) == 0 {
		return model.NewValidationError("items", nil, "at least one line item is required")
	}
	if violations := vat.ValidateNumber(req.Seller.VATNumber); len(violations) > 0 {
		return model.NewVATError("seller VAT", violations)
	}
	if req.InvoiceType == model.TypeStandard && req.Buyer.VATNumber == "" {
		return &model.MissingBuyerVATError{}
	}
	return nil
}

func (b *Builder) buildDocument(
	req model.GenerateRequest,
	id, issueTime string,
	lines []model.LineItem,
	groups []model.TaxGroup,
	totals model.Totals,
) *etree.Document {
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", NamespaceInvoice)
	root.CreateAttr("xmlns:cac", NamespaceCAC)
	root.CreateAttr("xmlns:cbc", NamespaceCBC)
	root.CreateAttr("xmlns:ext", NamespaceEXT)

	addText(root, "cbc:ProfileID", "reporting:1.0")
	addText(root, "cbc:ID", req.InvoiceNumber)
	addText(root, "cbc:UUID", id)
	addText(root, "cbc:IssueDate", req.IssueDate)
	addText(root, "cbc:IssueTime", issueTime)

	typeCode := addText(root, "cbc:InvoiceTypeCode", req.InvoiceType.TypeCode())
	typeCode.CreateAttr("name", req.InvoiceType.SubtypeCode())

	addText(root, "cbc:DocumentCurrencyCode", currency)
	addText(root, "cbc:TaxCurrencyCode", currency)

	if req.Note != "" {
		addText(root, "cbc:Note", req.Note)
	}

	if req.BillingReference != nil && req.BillingReference.ID != "" {
		billingRef := root.CreateElement("cac:BillingReference")
		docRef := billingRef.CreateElement("cac:InvoiceDocumentReference")
		addText(docRef, "cbc:ID", req.BillingReference.ID)
		if req.BillingReference.IssueDate != "" {
			addText(docRef, "cbc:IssueDate", req.BillingReference.IssueDate)
		}
	}

	if req.QRData != "" {
		docRef := root.CreateElement("cac:AdditionalDocumentReference")
		addText(docRef, "cbc:ID", "QR")
		attachment := docRef.CreateElement("cac:Attachment")
		embedded := addText(attachment, "cbc:EmbeddedDocumentBinaryObject", req.QRData)
		embedded.CreateAttr("mimeCode", "text/plain")
	}

	buildParty(root, "cac:AccountingSupplierParty", req.Seller)
	buildParty(root, "cac:AccountingCustomerParty", req.Buyer)

	if req.InstructionNote != "" {
		paymentMeans := root.CreateElement("cac:PaymentMeans")
		addText(paymentMeans, "cbc:PaymentMeansCode", "10")
		addText(paymentMeans, "cbc:InstructionNote", req.InstructionNote)
	}

	taxTotal := root.CreateElement("cac:TaxTotal")
	addAmount(taxTotal, "cbc:TaxAmount", totals.TotalVAT, currency)
	for _, group := range groups {
		subtotal := taxTotal.CreateElement("cac:TaxSubtotal")
		addAmount(subtotal, "cbc:TaxableAmount", money.Round2(group.Taxable), currency)
		addAmount(subtotal, "cbc:TaxAmount", money.Round2(group.Tax), currency)
		category := subtotal.CreateElement("cac:TaxCategory")
		addText(category, "cbc:ID", string(group.Category))
		addText(category, "cbc:Percent", money.RatePercent(group.Rate).String())
		scheme := category.CreateElement("cac:TaxScheme")
		addText(scheme, "cbc:ID", "VAT")
	}

	monetary := root.CreateElement("cac:LegalMonetaryTotal")
	addAmount(monetary, "cbc:LineExtensionAmount", totals.TaxExclusive, currency)
	addAmount(monetary, "cbc:TaxExclusiveAmount", totals.TaxExclusive, currency)
	addAmount(monetary, "cbc:TaxInclusiveAmount", totals.TaxInclusive, currency)
	addAmount(monetary, "cbc:PayableAmount", totals.Payable, currency)

	for i, line := range lines {
		buildLine(root, i+1, line, currency)
	}

	return doc
}

func buildParty(parent *etree.Element, tag string, party model.Party) {
	wrapper := parent.CreateElement(tag)
	p := wrapper.CreateElement("cac:Party")

	postal := p.CreateElement("cac:PostalAddress")
	if party.Address != "" {
		addText(postal, "cbc:StreetName", party.Address)
	}
	if party.City != "" {
		addText(postal, "cbc:CityName", party.City)
	}
	country := postal.CreateElement("cac:Country")
	countryCode := party.CountryCode
	if countryCode == "" {
		countryCode = "SA"
	}
	addText(country, "cbc:IdentificationCode", countryCode)

	if party.VATNumber != "" {
		taxScheme := p.CreateElement("cac:PartyTaxScheme")
		addText(taxScheme, "cbc:CompanyID", party.VATNumber)
		scheme := taxScheme.CreateElement("cac:TaxScheme")
		addText(scheme, "cbc:ID", "VAT")
	}

	legal := p.CreateElement("cac:PartyLegalEntity")
	addText(legal, "cbc:RegistrationName", party.Name)
}

func buildLine(parent *etree.Element, index int, line model.LineItem, currency string) {
	el := parent.CreateElement("cac:InvoiceLine")
	addText(el, "cbc:ID", strconv.Itoa(index))

	qty := addText(el, "cbc:InvoicedQuantity", line.Quantity.String())
	qty.CreateAttr("unitCode", "PCE")

	addAmount(el, "cbc:LineExtensionAmount", line.LineAmount, currency)

	lineTax := el.CreateElement("cac:TaxTotal")
	addAmount(lineTax, "cbc:TaxAmount", line.LineVAT, currency)
	addAmount(lineTax, "cbc:RoundingAmount", money.Round2(line.LineAmount.Add(line.LineVAT)), currency)

	item := el.CreateElement("cac:Item")
	addText(item, "cbc:Name", line.Name)
	classified := item.CreateElement("cac:ClassifiedTaxCategory")
	addText(classified, "cbc:ID", string(line.VATCategory))
	addText(classified, "cbc:Percent", money.RatePercent(line.VATRate).String())
	scheme := classified.CreateElement("cac:TaxScheme")
	addText(scheme, "cbc:ID", "VAT")

	price := el.CreateElement("cac:Price")
	addAmount(price, "cbc:PriceAmount", money.Round2(line.UnitPrice), currency)
}

func addText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

func addAmount(parent *etree.Element, tag string, amount decimal.Decimal, currency string) *etree.Element {
	el := addText(parent, tag, money.Format(amount))
	el.CreateAttr("currencyID", currency)
	return el
}
