package scanning

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// renderDPI is high enough for OCR on small receipt print
const renderDPI = 300

// pageTranscriptionPrompt is the shared prompt used by the LLM recognizers
const pageTranscriptionPrompt = `You are transcribing one page of a Norwegian grocery receipt export (REMA 1000 invoice or requisition list).

Copy every printed row of text exactly as it appears, top to bottom, one printed row per output line.

Rules:
- Keep the original characters, including æ, ø and å
- Keep numbers exactly as printed, including decimal commas, thousands separators and percent signs
- Keep the columns of a row on the same line, separated by two spaces
- Do not translate, summarize, correct or reorder anything
- Do not add headings, explanations or markdown code blocks
- If the page has no text, return nothing`

// renderPages rasterizes every page of a PDF into PNG images
func renderPages(pdfData []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
