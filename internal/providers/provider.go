package providers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// DocumentOCR submits whole documents to a remote OCR service. The flow is
// upload, signed-URL retrieval, then OCR submission against that URL.
type DocumentOCR interface {
	// Name returns the provider identifier (e.g., "mistral-ocr").
	Name() string

	// Upload stores the document remotely and returns its file id.
	Upload(ctx context.Context, filename string, data []byte) (string, error)

	// SignedURL returns a time-limited access URL for an uploaded file.
	SignedURL(ctx context.Context, fileID string) (string, error)

	// Process runs OCR on the document behind url, requesting inline image
	// payloads, and returns the structured page results.
	Process(ctx context.Context, documentURL string) (*OCRResult, error)
}

// Generator produces text from a prompt.
type Generator interface {
	// Name returns the client identifier (e.g., "mistral-chat").
	Name() string

	// Generate sends a single-turn completion request and returns the text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// OCRResult is the structured output of document OCR. Field names mirror the
// provider wire format so responses decode directly.
type OCRResult struct {
	Model     string     `json:"model"`
	Pages     []Page     `json:"pages"`
	UsageInfo *UsageInfo `json:"usage_info,omitempty"`
}

// Page is one page of OCR output: markdown text plus any embedded images the
// service extracted from it. Index defines document order; responses are not
// guaranteed pre-sorted.
type Page struct {
	Index      int            `json:"index"`
	Markdown   string         `json:"markdown"`
	Images     []PageImage    `json:"images,omitempty"`
	Dimensions PageDimensions `json:"dimensions"`
}

// PageImage is an embedded image. ID is the placeholder token referenced
// inside the page's markdown; ImageBase64 carries the data-URI payload when
// inline images were requested.
type PageImage struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64,omitempty"`
}

// PageDimensions reports the pixel size of a processed page.
type PageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

// UsageInfo reports provider-side accounting for one OCR call.
type UsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

// RateLimitError signals a 429 from a provider, carrying the server's
// Retry-After hint when present.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return e.Message
}

// IsRateLimitError extracts a RateLimitError from an error chain.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter interprets a Retry-After header value, either delta-seconds
// or an HTTP-date. Returns 0 when the value is absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
