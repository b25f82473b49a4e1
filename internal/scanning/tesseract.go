package scanning

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Recognizer interface with a local tesseract install
type Tesseract struct {
	language string
}

// NewTesseract creates a new Tesseract Recognizer. The language defaults to Norwegian.
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "nor"
	}
	return &Tesseract{language: language}
}

// Transcribe runs OCR on one page image
func (t *Tesseract) Transcribe(pngData []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return "", fmt.Errorf("decoding page image: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "rema-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(path)

	if err := imaging.Save(enhanceForOCR(img), path); err != nil {
		return "", fmt.Errorf("writing page image: %w", err)
	}

	// gosseract clients are not safe for concurrent use
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("setting OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return text, nil
}

// Close is a no-op; clients are created per page
func (t *Tesseract) Close() error {
	return nil
}

// enhanceForOCR boosts text contrast on a rendered page
func enhanceForOCR(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	return imaging.Sharpen(out, 1.5)
}
