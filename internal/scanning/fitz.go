package scanning

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/zombor/rema-xlsx/internal/invoice"
)

// Fitz extracts the text layer with MuPDF
type Fitz struct{}

// NewFitz creates a MuPDF-backed Extractor
func NewFitz() *Fitz {
	return &Fitz{}
}

// ExtractLines reads the text of every page in order
func (f *Fitz) ExtractLines(pdfData []byte) ([]invoice.RawTextLine, error) {
	// MuPDF also opens images and plain text, so check the header first
	if !hasPDFHeader(pdfData) {
		return nil, &invoice.UnreadablePDFError{Reason: "missing PDF header"}
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, &invoice.UnreadablePDFError{Reason: "opening document", Err: err}
	}
	defer doc.Close()

	var lines []invoice.RawTextLine
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, &invoice.UnreadablePDFError{Reason: fmt.Sprintf("reading page %d", i+1), Err: err}
		}
		lines = append(lines, cleanPage(i+1, text)...)
	}

	if len(lines) == 0 {
		return nil, noText()
	}
	return lines, nil
}

// Close is a no-op; documents are closed after each extraction
func (f *Fitz) Close() error {
	return nil
}
