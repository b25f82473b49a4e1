package scanning

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/rema-xlsx/internal/invoice"
)

// PageRenderer rasterizes every page of a PDF into PNG images
type PageRenderer func(pdfData []byte) ([][]byte, error)

// OCR wraps a text-layer Extractor and transcribes page images when the document has no text layer
type OCR struct {
	primary    Extractor
	recognizer Recognizer
	render     PageRenderer
}

// NewOCR creates an OCR fallback around primary
func NewOCR(primary Extractor, recognizer Recognizer) *OCR {
	return NewOCRWithDeps(primary, recognizer, renderPages)
}

// NewOCRWithDeps creates an OCR fallback with an injectable page renderer
func NewOCRWithDeps(primary Extractor, recognizer Recognizer, render PageRenderer) *OCR {
	return &OCR{
		primary:    primary,
		recognizer: recognizer,
		render:     render,
	}
}

// ExtractLines uses the text layer when there is one and OCR otherwise
func (o *OCR) ExtractLines(pdfData []byte) ([]invoice.RawTextLine, error) {
	lines, err := o.primary.ExtractLines(pdfData)
	if err == nil || !invoice.IsNoText(err) {
		return lines, err
	}

	slog.Info("No text layer found, falling back to OCR")

	pages, err := o.render(pdfData)
	if err != nil {
		return nil, &invoice.UnreadablePDFError{Reason: "rendering pages", Err: err}
	}

	var out []invoice.RawTextLine
	for i, page := range pages {
		text, err := o.recognizer.Transcribe(page)
		if err != nil {
			return nil, fmt.Errorf("transcribing page %d: %w", i+1, err)
		}
		out = append(out, cleanPage(i+1, stripCodeFence(text))...)
	}

	if len(out) == 0 {
		return nil, noText()
	}

	slog.Info("OCR transcription complete", "pages", len(pages), "lines", len(out))
	return out, nil
}

// Close closes the wrapped extractor and recognizer
func (o *OCR) Close() error {
	return errors.Join(o.primary.Close(), o.recognizer.Close())
}
