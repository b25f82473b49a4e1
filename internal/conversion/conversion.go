package conversion

import (
	"time"

	"github.com/zombor/rema-xlsx/internal/invoice"
)

// Conversion records one converted upload
type Conversion struct {
	ID             string    `json:"id"`
	SourceFilename string    `json:"source_filename"`
	OutputFilename string    `json:"output_filename"`
	StoragePath    string    `json:"storage_path"`
	ItemCount      int       `json:"item_count"`
	ReceiptCount   int       `json:"receipt_count"`
	FlaggedCount   int       `json:"flagged_count"`
	ExcludedCount  int       `json:"excluded_count"`
	Sum25          string    `json:"sum_25"` // decimal strings keep øre exact
	Sum15          string    `json:"sum_15"`
	Sum0           string    `json:"sum_0"`
	Total          string    `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
}

func newConversion(id, source, output string, result *invoice.ConversionResult, now time.Time) *Conversion {
	return &Conversion{
		ID:             id,
		SourceFilename: source,
		OutputFilename: output,
		ItemCount:      len(result.Items),
		ReceiptCount:   len(result.Receipts),
		FlaggedCount:   result.FlaggedCount(),
		ExcludedCount:  result.Summary.ExcludedCount,
		Sum25:          result.Summary.Sum25.StringFixed(2),
		Sum15:          result.Summary.Sum15.StringFixed(2),
		Sum0:           result.Summary.Sum0.StringFixed(2),
		Total:          result.Summary.Total.StringFixed(2),
		CreatedAt:      now,
	}
}
