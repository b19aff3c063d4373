/**
 * Input classifier for OCR submissions
 *
 * Decides, for arbitrary user text, whether it names a URL or a base64
 * payload, and whether that payload is a PDF or an image. Pure string
 * inspection, no I/O. Base64 content detection is prefix-only signature
 * sniffing and may misclassify payloads whose first bytes are ambiguous;
 * that is an accepted heuristic limitation.
 */

package classify

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// InputType is the transport family of a submission
type InputType string

// ContentType is the detected document family
type ContentType string

const (
	InputURL     InputType = "url"
	InputBase64  InputType = "base64"
	InputUnknown InputType = "unknown"

	ContentPDF     ContentType = "pdf"
	ContentImage   ContentType = "image"
	ContentUnknown ContentType = "unknown"
)

// Detection is the classifier output, derived purely from the input text
type Detection struct {
	InputType   InputType
	ContentType ContentType
	// Value is the trimmed input; for data URLs it is the decoded-equivalent
	// payload with the mime prefix stripped
	Value string
}

// Base64 payloads shorter than this are never treated as base64; short
// strings match the alphabet too easily.
const minBase64Length = 50

var (
	dataURLPattern  = regexp.MustCompile(`^data:([a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*);base64,(.*)$`)
	base64Pattern   = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	pdfSuffix       = regexp.MustCompile(`(?i)\.pdf(\?.*)?$`)
	imageSuffix     = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|avif|webp|gif)(\?.*)?$`)
	fullURLPattern  = regexp.MustCompile(`https?://[^\s]+`)
	wwwURLPattern   = regexp.MustCompile(`\bwww\.[^\s]+`)
	bareURLPattern  = regexp.MustCompile(`(?i)\b[a-z0-9-]+(\.[a-z0-9-]+)+/[^\s]*\.(pdf|png|jpg|jpeg|avif|webp|gif)\b`)
)

// Base64 signature prefixes of the recognized formats. These are the
// base64 encodings of the magic bytes (%PDF-, PNG, JPEG, GIF).
var (
	pdfSignature    = "JVBERi0"
	imageSignatures = []string{"iVBORw0KGgo", "/9j/", "R0lGOD"}
)

// Classify inspects text and returns its detected input and content types.
// Empty or whitespace-only input classifies as unknown/unknown.
func Classify(text string) Detection {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Detection{InputType: InputUnknown, ContentType: ContentUnknown, Value: trimmed}
	}

	if isHTTPURL(trimmed) {
		return Detection{
			InputType:   InputURL,
			ContentType: urlContentType(trimmed),
			Value:       trimmed,
		}
	}

	if m := dataURLPattern.FindStringSubmatch(trimmed); m != nil {
		mimeType, payload := m[1], m[2]
		content := ContentUnknown
		if strings.HasPrefix(mimeType, "image/") {
			content = ContentImage
		} else if mimeType == "application/pdf" {
			content = ContentPDF
		}
		return Detection{InputType: InputBase64, ContentType: content, Value: payload}
	}

	if len(trimmed) > minBase64Length && base64Pattern.MatchString(trimmed) {
		return Detection{
			InputType:   InputBase64,
			ContentType: sniffBase64Content(trimmed),
			Value:       trimmed,
		}
	}

	return Detection{InputType: InputUnknown, ContentType: ContentUnknown, Value: trimmed}
}

// isHTTPURL reports whether s parses as an absolute http(s) URL
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// urlContentType matches the URL suffix against the accepted document and
// image extensions, allowing a trailing query string
func urlContentType(s string) ContentType {
	if pdfSuffix.MatchString(s) {
		return ContentPDF
	}
	if imageSuffix.MatchString(s) {
		return ContentImage
	}
	return ContentUnknown
}

// sniffBase64Content matches known format signatures against the payload
// prefix without decoding
func sniffBase64Content(payload string) ContentType {
	if strings.HasPrefix(payload, pdfSignature) {
		return ContentPDF
	}
	for _, sig := range imageSignatures {
		if strings.HasPrefix(payload, sig) {
			return ContentImage
		}
	}
	return ContentUnknown
}

// HasMultipleURLs reports whether free text contains more than one URL-like
// occurrence: full http(s) URLs, www-prefixed domains, and bare
// domain.tld/path.ext references to the accepted extensions. Occurrences
// matched by more than one pattern are counted once.
func HasMultipleURLs(text string) bool {
	var spans [][]int
	for _, p := range []*regexp.Regexp{fullURLPattern, wwwURLPattern, bareURLPattern} {
		spans = append(spans, p.FindAllStringIndex(text, -1)...)
	}

	return countDistinctSpans(spans) > 1
}

// countDistinctSpans merges overlapping [start,end) index ranges and
// returns the merged count
func countDistinctSpans(spans [][]int) int {
	if len(spans) == 0 {
		return 0
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] != spans[j][0] {
			return spans[i][0] < spans[j][0]
		}
		return spans[i][1] > spans[j][1]
	})

	count := 1
	end := spans[0][1]
	for _, s := range spans[1:] {
		if s[0] >= end {
			count++
			end = s[1]
		} else if s[1] > end {
			end = s[1]
		}
	}

	return count
}
