package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagelens/ocr-gateway/internal/document"
	"github.com/pagelens/ocr-gateway/internal/errors"
)

func TestResolveInputURLs(t *testing.T) {
	c := &Consumer{}

	tests := []struct {
		name   string
		source string
		kind   document.Kind
	}{
		{"pdf url", "https://example.com/report.pdf", document.KindURLDocument},
		{"pdf url with query", "https://example.com/report.pdf?dl=1", document.KindURLDocument},
		{"image url", "https://example.com/scan.png", document.KindURLImage},
		{"webp url", "https://example.com/photo.webp", document.KindURLImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := c.resolveInput(JobData{Source: tt.source})
			if err != nil {
				t.Fatalf("resolveInput failed: %v", err)
			}
			if in.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, in.Kind)
			}
			if in.URL != tt.source {
				t.Errorf("expected URL %q, got %q", tt.source, in.URL)
			}
		})
	}
}

func TestResolveInputBase64(t *testing.T) {
	c := &Consumer{}

	pdfPayload := "JVBERi0xLjQKJcTl8uXrp/Og0MTGCjQgMCBvYmoKPDwgL0xlbmd0aCA1IDAgUiA+Pg"
	in, err := c.resolveInput(JobData{Source: pdfPayload})
	if err != nil {
		t.Fatalf("resolveInput failed: %v", err)
	}
	if in.Kind != document.KindBase64Document {
		t.Errorf("expected base64 document, got %s", in.Kind)
	}

	pngPayload := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPg"
	in, err = c.resolveInput(JobData{Source: pngPayload, MimeType: "image/png"})
	if err != nil {
		t.Fatalf("resolveInput failed: %v", err)
	}
	if in.Kind != document.KindBase64Image {
		t.Errorf("expected base64 image, got %s", in.Kind)
	}
	if in.MimeType != "image/png" {
		t.Errorf("expected declared mime to carry through, got %q", in.MimeType)
	}
}

func TestResolveInputRejectsMultipleURLs(t *testing.T) {
	c := &Consumer{}

	_, err := c.resolveInput(JobData{Source: "https://a.com/x.pdf https://b.com/y.pdf"})
	if err == nil {
		t.Fatal("expected error for multiple URLs")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestResolveInputRejectsGarbage(t *testing.T) {
	c := &Consumer{}

	for _, source := range []string{"", "just some words", strings.Repeat("?", 80), "https://example.com/view/123"} {
		if _, err := c.resolveInput(JobData{Source: source}); err == nil {
			t.Errorf("expected error for source %q", source)
		}
	}
}

func TestResolveInputFile(t *testing.T) {
	c := &Consumer{}

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	in, err := c.resolveInput(JobData{FilePath: path})
	if err != nil {
		t.Fatalf("resolveInput failed: %v", err)
	}
	if in.Kind != document.KindFile {
		t.Errorf("expected file kind, got %s", in.Kind)
	}
	if in.File == nil || in.File.Name() != "scan.png" {
		t.Error("expected file handle with original name")
	}
}

func TestResolveInputEnforcesFileSizeLimit(t *testing.T) {
	c := &Consumer{config: &ConsumerConfig{MaxFileSize: 4}}

	path := filepath.Join(t.TempDir(), "big.pdf")
	if err := os.WriteFile(path, []byte("more than four bytes"), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	_, err := c.resolveInput(JobData{FilePath: path})
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}
