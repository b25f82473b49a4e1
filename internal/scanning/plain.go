package scanning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/zombor/rema-xlsx/internal/invoice"
)

// PlainPDF extracts the text layer without cgo
type PlainPDF struct{}

// NewPlainPDF creates a pure Go Extractor
func NewPlainPDF() *PlainPDF {
	return &PlainPDF{}
}

// ExtractLines reads every page row by row. The pdf library panics on some malformed
// documents; those panics are reported as unreadable input.
func (p *PlainPDF) ExtractLines(pdfData []byte) (lines []invoice.RawTextLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = &invoice.UnreadablePDFError{Reason: fmt.Sprintf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, &invoice.UnreadablePDFError{Reason: "opening document", Err: err}
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, &invoice.UnreadablePDFError{Reason: fmt.Sprintf("reading page %d", i), Err: err}
		}

		var text strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				text.WriteString(word.S)
			}
			text.WriteByte('\n')
		}
		lines = append(lines, cleanPage(i, text.String())...)
	}

	if len(lines) == 0 {
		return nil, noText()
	}
	return lines, nil
}

// Close is a no-op
func (p *PlainPDF) Close() error {
	return nil
}
