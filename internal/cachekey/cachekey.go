/**
 * Cache-key derivation for OCR submissions
 *
 * Two submissions map to the same key iff they have the same operation kind
 * and the same discriminator: the verbatim URL string, a truncation digest
 * of the base64 payload, or a content-sample hash plus size for files. The
 * digests are deliberately weak; the cache is a local performance
 * optimization, not a security boundary.
 */

package cachekey

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagelens/ocr-gateway/internal/document"
	"github.com/pagelens/ocr-gateway/internal/errors"
)

// Namespace is the leading token of every key this package produces.
// RemoveAll(Namespace) on the cache store clears everything the gateway has
// ever written.
const Namespace = "ocr"

// hashSampleSize bounds how much file content feeds the rolling hash
const hashSampleSize = 8192

// Key is an ordered token sequence: namespace, operation kind, then one or
// more discriminator tokens
type Key []string

// String joins the tokens for use with string-keyed stores
func (k Key) String() string {
	return strings.Join(k, ":")
}

// KeyFor derives the cache key for in. Only the file kind performs I/O
// (a prefix read of the file content), so only that path can fail.
func KeyFor(ctx context.Context, in document.Input) (Key, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	switch in.Kind {
	case document.KindURLDocument, document.KindURLImage:
		return Key{Namespace, string(in.Kind), in.URL}, nil

	case document.KindBase64Document, document.KindBase64Image:
		return Key{Namespace, string(in.Kind), Digest(in.Base64)}, nil

	case document.KindFile:
		return fileKey(ctx, in)

	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unrecognized input kind: %q", in.Kind))
	}
}

// Digest produces a lightweight fingerprint of a base64 payload: strings of
// up to 40 characters pass through verbatim, longer ones collapse to the
// first 20 characters, the decimal length, and the last 20 characters.
func Digest(s string) string {
	if len(s) <= 40 {
		return s
	}
	return fmt.Sprintf("%s%d%s", s[:20], len(s), s[len(s)-20:])
}

// fileKey derives a content-addressed key for a local file. The trailing
// literal "0" stands where a modification timestamp would go: two uploads
// of the same bytes must produce the same key regardless of OS-reported
// mtime.
func fileKey(ctx context.Context, in document.Input) (Key, error) {
	f := in.File

	var kind string
	switch {
	case f.IsPDF():
		kind = "file-document"
	case f.IsImage():
		kind = "file-image"
	default:
		return nil, errors.NewUnsupportedFormatError(f.MimeType())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample, err := f.ReadPrefix(hashSampleSize)
	if err != nil {
		return nil, errors.NewStorageError("failed to sample file content", err)
	}

	contentHash := fmt.Sprintf("%s-%d-%s", f.Name(), f.Size(), strconv.FormatInt(abs32(rollingHash(sample)), 36))

	return Key{
		Namespace,
		kind,
		contentHash,
		strconv.FormatInt(f.Size(), 10),
		"0",
	}, nil
}

// rollingHash folds data into a 32-bit value with hash = hash*31 + byte,
// wrapping in signed 32-bit range
func rollingHash(data []byte) int32 {
	var hash int32
	for _, b := range data {
		hash = hash*31 + int32(b)
	}
	return hash
}

// abs32 returns |v| as int64 so that math.MinInt32 does not overflow
func abs32(v int32) int64 {
	if v < 0 {
		return -int64(v)
	}
	return int64(v)
}
