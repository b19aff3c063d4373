/**
 * OCR API client adapter
 *
 * Thin call-through to the external OCR endpoint with one entry point per
 * payload family. Each entry point validates its payload before any network
 * I/O, makes exactly one request, and normalizes the page list into the
 * uniform Result shape. Retry policy belongs to the calling layer.
 */

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagelens/ocr-gateway/internal/classify"
	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/logging"
)

// pageSeparator joins per-page markdown in the normalized result
const pageSeparator = "\n\n---\n\n"

// noTextSentinel is returned when no page carried any extracted text
const noTextSentinel = "No text found in the document."

// minBase64Length matches the classifier's floor for base64 payloads
const minBase64Length = 50

// Client calls the external OCR API
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates an OCR API client. The API key is supplied per call,
// not held by the client, so one client serves every credential.
func NewClient(baseURL string, model string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if model == "" {
		model = "mistral-ocr-latest"
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // OCR on large documents can take time
		},
		logger: logging.NewLogger("OCRClient"),
	}
}

// ProcessDocumentURL runs OCR on a PDF referenced by URL
func (c *Client) ProcessDocumentURL(ctx context.Context, apiKey string, url string) (*Result, error) {
	d := classify.Classify(url)
	if d.InputType != classify.InputURL {
		return nil, errors.NewValidationError(fmt.Sprintf("not a valid http(s) URL: %q", url))
	}
	if d.ContentType != classify.ContentPDF {
		return nil, errors.NewValidationError(fmt.Sprintf("URL does not reference a PDF document: %q", url))
	}

	return c.process(ctx, apiKey, "document-url", documentRef{
		Type:        "document_url",
		DocumentURL: d.Value,
	})
}

// ProcessImageURL runs OCR on an image referenced by URL
func (c *Client) ProcessImageURL(ctx context.Context, apiKey string, url string) (*Result, error) {
	d := classify.Classify(url)
	if d.InputType != classify.InputURL {
		return nil, errors.NewValidationError(fmt.Sprintf("not a valid http(s) URL: %q", url))
	}
	if d.ContentType != classify.ContentImage {
		return nil, errors.NewValidationError(fmt.Sprintf("URL does not reference a supported image: %q", url))
	}

	return c.process(ctx, apiKey, "image-url", documentRef{
		Type:        "image_url",
		ImageURL:    d.Value,
	})
}

// ProcessDocumentBase64 runs OCR on a raw base64 PDF payload
func (c *Client) ProcessDocumentBase64(ctx context.Context, apiKey string, payload string) (*Result, error) {
	if err := validateBase64(payload); err != nil {
		return nil, err
	}

	return c.process(ctx, apiKey, "document-base64", documentRef{
		Type:        "document_url",
		DocumentURL: "data:application/pdf;base64," + payload,
	})
}

// ProcessImageBase64 runs OCR on a raw base64 image payload. mimeType
// defaults to image/jpeg when empty.
func (c *Client) ProcessImageBase64(ctx context.Context, apiKey string, payload string, mimeType string) (*Result, error) {
	if err := validateBase64(payload); err != nil {
		return nil, err
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return c.process(ctx, apiKey, "image-base64", documentRef{
		Type:     "image_url",
		ImageURL: fmt.Sprintf("data:%s;base64,%s", mimeType, payload),
	})
}

// validateBase64 checks alphabet and minimum length before any network call
func validateBase64(payload string) error {
	trimmed := strings.TrimSpace(payload)
	if len(trimmed) <= minBase64Length {
		return errors.NewValidationError(fmt.Sprintf("base64 payload too short: %d chars", len(trimmed)))
	}

	d := classify.Classify(trimmed)
	if d.InputType != classify.InputBase64 {
		return errors.NewValidationError("payload is not valid base64")
	}

	return nil
}

// process makes the single external call and normalizes the response
func (c *Client) process(ctx context.Context, apiKey string, operation string, doc documentRef) (*Result, error) {
	if apiKey == "" {
		return nil, errors.NewValidationError("API key is required")
	}

	reqBody, err := json.Marshal(apiRequest{
		Model:              c.model,
		Document:           doc,
		IncludeImageBase64: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/ocr"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	c.logger.Debug("Calling OCR API", "operation", operation, "model", c.model)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewAPICallError(operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAPICallError(operation, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPICallError(operation,
			fmt.Errorf("OCR API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, errors.NewAPICallError(operation, fmt.Errorf("failed to parse response: %w", err))
	}

	elapsed := time.Since(startTime).Seconds()

	result := normalize(&apiResp, elapsed)

	// Post-condition check on the normalized result, not user input
	if result.ProcessingTime <= 0 {
		return nil, fmt.Errorf("invariant violated: non-positive processing time %f", result.ProcessingTime)
	}
	if result.Pages < 0 {
		return nil, fmt.Errorf("invariant violated: negative page count %d", result.Pages)
	}

	c.logger.Info("OCR call complete",
		"operation", operation,
		"pages", result.Pages,
		"images", len(result.Images),
		"elapsed", fmt.Sprintf("%.2fs", result.ProcessingTime))

	return result, nil
}

// normalize flattens the page list into the uniform Result shape:
// page markdowns joined with a visible separator, all page images in one
// sequence, and a sentinel when no text was found anywhere.
func normalize(resp *apiResponse, elapsedSeconds float64) *Result {
	var texts []string
	var images []PageImage

	for _, page := range resp.Pages {
		if strings.TrimSpace(page.Markdown) != "" {
			texts = append(texts, page.Markdown)
		}
		images = append(images, page.Images...)
	}

	text := strings.Join(texts, pageSeparator)
	if text == "" {
		text = noTextSentinel
	}

	return &Result{
		Text:           text,
		Pages:          len(resp.Pages),
		ProcessingTime: elapsedSeconds,
		Images:         images,
	}
}
