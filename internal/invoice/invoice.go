package invoice

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// RawTextLine is one cleaned line of text extracted from a PDF page
type RawTextLine struct {
	Page  int    `json:"page"`  // 1-based page number
	Index int    `json:"index"` // position of the line within its page
	Text  string `json:"text"`
}

// VatRate is a VAT percentage as printed on the receipt
type VatRate int

const (
	Vat25 VatRate = 25
	Vat15 VatRate = 15
	Vat0  VatRate = 0

	// VatUnknown marks a rate token that could not be read at all
	VatUnknown VatRate = -1
)

// VatRates lists the recognized rates in summary order
var VatRates = []VatRate{Vat25, Vat15, Vat0}

// Recognized reports whether the rate is one of 25, 15 or 0
func (r VatRate) Recognized() bool {
	return slices.Contains(VatRates, r)
}

func (r VatRate) String() string {
	if r == VatUnknown {
		return "?"
	}
	return fmt.Sprintf("%d%%", int(r))
}

// Flag marks a field-level validation problem on a LineItem
type Flag string

const (
	FlagInvalidDate      Flag = "invalid_date"
	FlagMissingDate      Flag = "missing_date"
	FlagMissingReceipt   Flag = "missing_receipt_number"
	FlagInvalidEAN       Flag = "invalid_ean"
	FlagShortEAN         Flag = "short_ean"
	FlagEANChecksum      Flag = "ean_checksum"
	FlagInvalidQuantity  Flag = "invalid_quantity"
	FlagInvalidUnitPrice Flag = "invalid_unit_price"
	FlagInvalidAmount    Flag = "invalid_amount"
	FlagUnknownVatRate   Flag = "unknown_vat_rate"
	FlagAmountMismatch   Flag = "amount_mismatch"
)

// amountTolerance is the allowed gap between the printed amount and the computed gross amount
var amountTolerance = decimal.New(1, -2)

// LineItem is one product entry on a receipt
type LineItem struct {
	Date          time.Time           `json:"date"`
	DateText      string              `json:"date_text,omitempty"`
	ReceiptNumber string              `json:"receipt_number"`
	Responsible   string              `json:"responsible"`
	EAN           string              `json:"ean,omitempty"`
	Description   string              `json:"description"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	UnitPrice     decimal.NullDecimal `json:"unit_price"`
	VatRate       VatRate             `json:"vat_rate"`
	Amount        decimal.NullDecimal `json:"amount"`
	Flags         []Flag              `json:"flags,omitempty"`
	Source        RawTextLine         `json:"source"`
}

// HasDate reports whether the receipt date was resolved
func (li LineItem) HasDate() bool {
	return !li.Date.IsZero()
}

// Valid reports whether the item carries no validation flags
func (li LineItem) Valid() bool {
	return len(li.Flags) == 0
}

// HasFlag reports whether the item carries the given flag
func (li LineItem) HasFlag(f Flag) bool {
	return slices.Contains(li.Flags, f)
}

func (li *LineItem) flag(f Flag) {
	if !li.HasFlag(f) {
		li.Flags = append(li.Flags, f)
	}
}

// ExpectedAmount computes the gross amount implied by quantity, unit price and VAT rate.
// The second return is false when any of those fields is missing.
func (li LineItem) ExpectedAmount() (decimal.Decimal, bool) {
	if !li.Quantity.Valid || !li.UnitPrice.Valid || li.VatRate == VatUnknown {
		return decimal.Zero, false
	}
	return GrossAmount(li.Quantity.Decimal, li.UnitPrice.Decimal, li.VatRate), true
}

// GrossAmount returns quantity * net unit price plus VAT, rounded to øre
func GrossAmount(quantity, unitPrice decimal.Decimal, rate VatRate) decimal.Decimal {
	multiplier := decimal.NewFromInt(int64(100 + rate)).Div(decimal.NewFromInt(100))
	return quantity.Mul(unitPrice).Mul(multiplier).Round(2)
}

// checkAmount flags the item when the printed amount disagrees with the computed one
func (li *LineItem) checkAmount() {
	if !li.Amount.Valid {
		return
	}
	expected, ok := li.ExpectedAmount()
	if !ok {
		return
	}
	if li.Amount.Decimal.Sub(expected).Abs().GreaterThan(amountTolerance) {
		li.flag(FlagAmountMismatch)
	}
}

// ReceiptTotal summarizes one receipt and compares its printed totals with the item sum
type ReceiptTotal struct {
	Date          time.Time           `json:"date"`
	DateText      string              `json:"date_text,omitempty"`
	ReceiptNumber string              `json:"receipt_number"`
	Responsible   string              `json:"responsible"`
	ItemCount     int                 `json:"item_count"`
	ComputedTotal decimal.Decimal     `json:"computed_total"`
	DeclaredBase  decimal.NullDecimal `json:"declared_base"`
	DeclaredTotal decimal.NullDecimal `json:"declared_total"`
}

// Reconciled reports whether the declared total, when present, equals the item sum
func (r ReceiptTotal) Reconciled() bool {
	if !r.DeclaredTotal.Valid {
		return true
	}
	return r.DeclaredTotal.Decimal.Equal(r.ComputedTotal)
}
