/**
 * Tesseract fallback - offline OCR for local files
 *
 * Used when no API credential is configured. Produces the same normalized
 * Result shape as the API client so cached entries are interchangeable.
 */

package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract performs local OCR on image files
type Tesseract struct {
	tesseractPath string
}

// NewTesseract creates a local OCR engine
func NewTesseract(tesseractPath string) *Tesseract {
	if tesseractPath == "" {
		tesseractPath = "/usr/bin/tesseract"
	}

	return &Tesseract{tesseractPath: tesseractPath}
}

// ProcessBytes runs OCR on raw image bytes
func (t *Tesseract) ProcessBytes(ctx context.Context, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		text = noTextSentinel
	}

	return &Result{
		Text:           text,
		Pages:          1,
		ProcessingTime: time.Since(startTime).Seconds(),
	}, nil
}
