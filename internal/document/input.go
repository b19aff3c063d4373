/**
 * Input descriptors for OCR submissions
 *
 * A submission is exactly one of: a document/image URL, a raw base64
 * payload, or a local file. The kind drives cache-key derivation and the
 * choice of OCR client entry point; code switching on Kind must fail loudly
 * on an unrecognized value rather than fall through.
 */

package document

import (
	"fmt"

	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/fileio"
)

// Kind identifies the payload family of a submission
type Kind string

const (
	KindURLDocument    Kind = "url-document"
	KindURLImage       Kind = "url-image"
	KindBase64Document Kind = "base64-document"
	KindBase64Image    Kind = "base64-image"
	KindFile           Kind = "file"
)

// Input is the tagged union over submission payloads. Exactly one payload
// field is meaningful for a given Kind: URL for the url kinds, Base64 (plus
// the optional declared MimeType) for the base64 kinds, File for KindFile.
type Input struct {
	Kind     Kind
	URL      string
	Base64   string
	MimeType string
	File     *fileio.File
}

// URLDocument builds a descriptor for a PDF URL
func URLDocument(url string) Input {
	return Input{Kind: KindURLDocument, URL: url}
}

// URLImage builds a descriptor for an image URL
func URLImage(url string) Input {
	return Input{Kind: KindURLImage, URL: url}
}

// Base64Document builds a descriptor for a raw base64 PDF payload
func Base64Document(payload string) Input {
	return Input{Kind: KindBase64Document, Base64: payload, MimeType: "application/pdf"}
}

// Base64Image builds a descriptor for a raw base64 image payload
func Base64Image(payload, mimeType string) Input {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return Input{Kind: KindBase64Image, Base64: payload, MimeType: mimeType}
}

// FromFile builds a descriptor for a local file
func FromFile(f *fileio.File) Input {
	return Input{Kind: KindFile, File: f}
}

// Validate checks that the descriptor carries the payload its kind requires
func (in Input) Validate() error {
	switch in.Kind {
	case KindURLDocument, KindURLImage:
		if in.URL == "" {
			return errors.NewValidationError(fmt.Sprintf("%s input requires a URL", in.Kind))
		}
	case KindBase64Document, KindBase64Image:
		if in.Base64 == "" {
			return errors.NewValidationError(fmt.Sprintf("%s input requires a base64 payload", in.Kind))
		}
	case KindFile:
		if in.File == nil {
			return errors.NewValidationError("file input requires a file handle")
		}
	default:
		return errors.NewValidationError(fmt.Sprintf("unrecognized input kind: %q", in.Kind))
	}
	return nil
}
