package invoice

import "github.com/shopspring/decimal"

// VatSummary holds the per-rate subtotals of a set of line items.
// Sum25 + Sum15 + Sum0 + Excluded always equals Total.
type VatSummary struct {
	Sum25         decimal.Decimal `json:"sum_25"`
	Sum15         decimal.Decimal `json:"sum_15"`
	Sum0          decimal.Decimal `json:"sum_0"`
	Excluded      decimal.Decimal `json:"excluded_sum"`
	ExcludedCount int             `json:"excluded_count"` // items with an unrecognized VAT rate
	MissingAmount int             `json:"missing_amount"` // items without a usable amount
	Total         decimal.Decimal `json:"total"`
}

// Summarize folds the items into VAT buckets
func Summarize(items []LineItem) VatSummary {
	s := VatSummary{
		Sum25:    decimal.Zero,
		Sum15:    decimal.Zero,
		Sum0:     decimal.Zero,
		Excluded: decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, item := range items {
		if !item.Amount.Valid {
			s.MissingAmount++
			continue
		}
		amount := item.Amount.Decimal
		s.Total = s.Total.Add(amount)

		switch item.VatRate {
		case Vat25:
			s.Sum25 = s.Sum25.Add(amount)
		case Vat15:
			s.Sum15 = s.Sum15.Add(amount)
		case Vat0:
			s.Sum0 = s.Sum0.Add(amount)
		default:
			s.Excluded = s.Excluded.Add(amount)
			s.ExcludedCount++
		}
	}
	return s
}

// SumFor returns the bucket for a recognized rate, zero otherwise
func (s VatSummary) SumFor(rate VatRate) decimal.Decimal {
	switch rate {
	case Vat25:
		return s.Sum25
	case Vat15:
		return s.Sum15
	case Vat0:
		return s.Sum0
	}
	return decimal.Zero
}
