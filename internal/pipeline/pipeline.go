package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/zombor/rema-xlsx/internal/invoice"
	"github.com/zombor/rema-xlsx/internal/scanning"
	"github.com/zombor/rema-xlsx/internal/sheet"
)

// ErrInternal is returned when a stage fails unexpectedly
var ErrInternal = errors.New("internal conversion error")

// Output is one finished conversion
type Output struct {
	Result   *invoice.ConversionResult
	Workbook []byte
}

// Pipeline chains extraction, parsing, aggregation and rendering
type Pipeline struct {
	extractor scanning.Extractor
}

// New creates a Pipeline reading text with extractor
func New(extractor scanning.Extractor) *Pipeline {
	return &Pipeline{extractor: extractor}
}

// Run converts PDF bytes into a structured result and its XLSX rendering.
// Panics in any stage are returned as ErrInternal.
func (p *Pipeline) Run(pdfData []byte) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Conversion panicked", "panic", r, "stack", string(debug.Stack()))
			out = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	lines, err := p.extractor.ExtractLines(pdfData)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	result, err := invoice.Convert(lines)
	if err != nil {
		return nil, fmt.Errorf("parsing lines: %w", err)
	}

	workbook, err := sheet.Render(result)
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}

	slog.Info("Converted document",
		"lines", len(lines),
		"items", len(result.Items),
		"receipts", len(result.Receipts),
		"flagged", result.FlaggedCount(),
		"total", result.Summary.Total.StringFixed(2))

	return &Output{Result: result, Workbook: workbook}, nil
}

// Close releases the extractor
func (p *Pipeline) Close() error {
	return p.extractor.Close()
}
