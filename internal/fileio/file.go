/**
 * File accessor for OCR submissions
 *
 * Wraps a local file behind the small surface the gateway needs: byte size,
 * declared media type, a prefix read for content hashing, and a full-content
 * data-URL encoding for the OCR API.
 */

package fileio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Extensions accepted for OCR submission, by content family
var (
	pdfExtensions   = map[string]bool{".pdf": true}
	imageExtensions = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".avif": true,
		".webp": true,
		".gif":  true,
	}
)

// File is a handle on a local file queued for OCR
type File struct {
	path     string
	name     string
	size     int64
	mimeType string
}

// Open stats path and returns a file handle. The declared media type is
// resolved from the filename extension; pass mimeType to override it (for
// uploads that carry their own content type).
func Open(path string, mimeType string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	}

	return &File{
		path:     path,
		name:     filepath.Base(path),
		size:     info.Size(),
		mimeType: mimeType,
	}, nil
}

// Name returns the base filename
func (f *File) Name() string {
	return f.name
}

// Size returns the file size in bytes
func (f *File) Size() int64 {
	return f.size
}

// MimeType returns the declared media type (may be empty)
func (f *File) MimeType() string {
	return f.mimeType
}

// IsPDF reports whether the file is an accepted PDF by declared MIME type
// or filename extension
func (f *File) IsPDF() bool {
	if f.mimeType == "application/pdf" {
		return true
	}
	return pdfExtensions[strings.ToLower(filepath.Ext(f.name))]
}

// IsImage reports whether the file is an accepted image by declared MIME
// type or filename extension
func (f *File) IsImage() bool {
	if strings.HasPrefix(f.mimeType, "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(filepath.Ext(f.name))]
}

// ReadPrefix reads at most n bytes from the start of the file
func (f *File) ReadPrefix(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prefix length must be positive, got %d", n)
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer fh.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(fh, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return buf[:read], nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file prefix: %w", err)
	}

	return buf, nil
}

// Bytes reads the full file content
func (f *File) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Base64 encodes the full file content as standard base64
func (f *File) Base64(ctx context.Context) (string, error) {
	data, err := f.Bytes(ctx)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURL encodes the full file content as a base64 data URL using the
// declared media type
func (f *File) DataURL(ctx context.Context) (string, error) {
	payload, err := f.Base64(ctx)
	if err != nil {
		return "", err
	}

	mimeType := f.mimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload), nil
}
