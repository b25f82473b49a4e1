package scanning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/zombor/rema-xlsx/internal/invoice"
)

// Extractor backends
const (
	BackendFitz = "fitz"
	BackendPDF  = "pdf"
)

// Extractor turns PDF bytes into an ordered sequence of text lines
type Extractor interface {
	// ExtractLines returns the cleaned lines of every page in reading order
	ExtractLines(pdfData []byte) ([]invoice.RawTextLine, error)
	// Close releases resources
	Close() error
}

// Recognizer transcribes a rendered page image into text
type Recognizer interface {
	// Transcribe returns the text of a PNG page image, one printed row per line
	Transcribe(pngData []byte) (string, error)
	// Close releases resources
	Close() error
}

// NewExtractor returns the text-layer extractor for a backend name
func NewExtractor(backend string) (Extractor, error) {
	switch backend {
	case "", BackendFitz:
		return NewFitz(), nil
	case BackendPDF:
		return NewPlainPDF(), nil
	}
	return nil, fmt.Errorf("unknown extractor backend %q", backend)
}

// cleanPage splits the text of one page into lines, dropping the empty ones
func cleanPage(page int, text string) []invoice.RawTextLine {
	var lines []invoice.RawTextLine
	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		lines = append(lines, invoice.RawTextLine{Page: page, Index: len(lines), Text: line})
	}
	return lines
}

// cleanLine turns non-breaking spaces and tabs into spaces and trims the result
func cleanLine(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\t':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func noText() error {
	return &invoice.UnreadablePDFError{Reason: invoice.ReasonNoText}
}

// hasPDFHeader looks for the %PDF- marker within the first kilobyte
func hasPDFHeader(data []byte) bool {
	return bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-"))
}
