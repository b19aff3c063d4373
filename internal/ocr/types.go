/**
 * OCR types - normalized result shape and external API wire types
 *
 * The wire types mirror the Mistral-style OCR endpoint: one document
 * reference per request, a page list in response, each page carrying
 * extracted markdown and optional embedded images.
 */

package ocr

// Result is the normalized outcome of one OCR call. Results are write-once:
// they are produced by the client adapter, stored verbatim in the cache, and
// never mutated afterwards.
type Result struct {
	Text string `json:"text"`
	// Pages is the page count; zero means the API reported none
	Pages int `json:"pages,omitempty"`
	// ProcessingTime is elapsed wall-clock seconds around the external call
	ProcessingTime float64     `json:"processingTime"`
	Images         []PageImage `json:"images,omitempty"`
}

// PageImage is an image embedded in a page of the OCR response
type PageImage struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64,omitempty"`
}

// apiRequest is the request body for the external OCR endpoint
type apiRequest struct {
	Model              string      `json:"model"`
	Document           documentRef `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

// documentRef names exactly one document for the OCR endpoint
type documentRef struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// apiResponse is the response body of the external OCR endpoint
type apiResponse struct {
	Pages     []apiPage `json:"pages"`
	Model     string    `json:"model"`
	UsageInfo struct {
		PagesProcessed int  `json:"pages_processed"`
		DocSizeBytes   *int `json:"doc_size_bytes"`
	} `json:"usage_info"`
}

// apiPage is a single page of the OCR response
type apiPage struct {
	Index    int         `json:"index"`
	Markdown string      `json:"markdown"`
	Images   []PageImage `json:"images"`
}
