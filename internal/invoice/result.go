package invoice

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ConversionResult is the structured output of one conversion
type ConversionResult struct {
	Items    []LineItem     `json:"items"`
	Summary  VatSummary     `json:"summary"`
	Receipts []ReceiptTotal `json:"receipts"`
}

// Convert parses the lines and aggregates the items
func Convert(lines []RawTextLine) (*ConversionResult, error) {
	parsed, err := Parse(lines)
	if err != nil {
		return nil, err
	}
	return NewConversionResult(parsed.Items, parsed.Receipts), nil
}

// NewConversionResult builds a result from its own copies of items and receipts
func NewConversionResult(items []LineItem, receipts []ReceiptTotal) *ConversionResult {
	items = slices.Clone(items)
	for i := range items {
		items[i].Flags = slices.Clone(items[i].Flags)
	}
	return &ConversionResult{
		Items:    items,
		Summary:  Summarize(items),
		Receipts: slices.Clone(receipts),
	}
}

// FlaggedCount returns the number of items carrying validation flags
func (r *ConversionResult) FlaggedCount() int {
	n := 0
	for _, item := range r.Items {
		if !item.Valid() {
			n++
		}
	}
	return n
}

// ReceiptsTotal sums the declared totals of all receipts, falling back to the computed total
func (r *ConversionResult) ReceiptsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, rt := range r.Receipts {
		if rt.DeclaredTotal.Valid {
			total = total.Add(rt.DeclaredTotal.Decimal)
		} else {
			total = total.Add(rt.ComputedTotal)
		}
	}
	return total
}
