package builder

import (
	"time"

	"github.com/DoubleH10/zatca-mcp/internal/model"
	"github.com/DoubleH10/zatca-mcp/internal/tlv"
)

// PhaseOneQR computes the Phase 1 TLV payload for a request: seller
// identity from the request, totals from its line items, and a
// timestamp combining the issue date with the given wall-clock time.
func PhaseOneQR(req model.GenerateRequest, now time.Time) (string, error) {
	totals, err := ComputeTotals(req.Items)
	if err != nil {
		return "", err
	}

	timestamp := req.IssueDate + "T" + now.UTC().Format("15:04:05") + "Z"

	return tlv.Encode(tlv.Fields{
		SellerName:  req.Seller.Name,
		VATNumber:   req.Seller.VATNumber,
		Timestamp:   timestamp,
		TotalAmount: totals.TaxInclusive.StringFixed(2),
		VATAmount:   totals.TotalVAT.StringFixed(2),
	})
}
