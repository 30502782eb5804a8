package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralBaseURL    = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
	mistralOCRPurpose = "ocr"
)

// MistralConfig holds configuration for the Mistral OCR client.
type MistralConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	IncludeImages bool         // Whether to include base64 image data in response
	RateLimit     float64      // Requests per second (default: 6.0)
	HTTPClient    *http.Client // Optional (tests)
}

// MistralClient implements DocumentOCR against the Mistral files + OCR API.
type MistralClient struct {
	apiKey        string
	baseURL       string
	model         string
	includeImages bool
	limiter       *RateLimiter
	client        *http.Client
}

// NewMistralClient creates a new Mistral OCR client.
func NewMistralClient(cfg MistralConfig) *MistralClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0 // Mistral OCR default rate limit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &MistralClient{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		model:         cfg.Model,
		includeImages: cfg.IncludeImages,
		limiter:       NewRateLimiter(cfg.RateLimit),
		client:        httpClient,
	}
}

// Name returns the provider identifier.
func (c *MistralClient) Name() string {
	return MistralOCRName
}

// LimiterStatus returns the current rate limiter status.
func (c *MistralClient) LimiterStatus() RateLimiterStatus {
	return c.limiter.Status()
}

// Upload stores the document in Mistral's file store with the OCR purpose
// and returns the assigned file id.
func (c *MistralClient) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("purpose", mistralOCRPurpose); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var uploadResp mistralUploadResponse
	if err := c.do(req, &uploadResp); err != nil {
		return "", err
	}
	if uploadResp.ID == "" {
		return "", fmt.Errorf("upload response missing file id")
	}
	return uploadResp.ID, nil
}

// SignedURL returns a time-limited download URL for an uploaded file.
func (c *MistralClient) SignedURL(ctx context.Context, fileID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/files/"+fileID+"/url", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var urlResp mistralSignedURLResponse
	if err := c.do(req, &urlResp); err != nil {
		return "", err
	}
	if urlResp.URL == "" {
		return "", fmt.Errorf("signed URL response missing url")
	}
	return urlResp.URL, nil
}

// Process runs OCR on the document behind url. Inline image payloads are
// requested when the client is configured with IncludeImages.
func (c *MistralClient) Process(ctx context.Context, documentURL string) (*OCRResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: documentURL,
		},
		IncludeImageBase64: c.includeImages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/ocr", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result OCRResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes a request and decodes the JSON response into out.
func (c *MistralClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := mistralErrorMessage(respBody)

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.limiter.Record429(retryAfter)
			return &RateLimitError{
				Message:    fmt.Sprintf("Mistral rate limited: %s", errMsg),
				RetryAfter: retryAfter,
				StatusCode: resp.StatusCode,
			}
		}

		return fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, errMsg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// mistralErrorMessage extracts a human-readable message from an error body.
// The API uses both a nested {"error":{"message":…}} shape and a flat
// {"message":…} shape depending on endpoint.
func mistralErrorMessage(body []byte) string {
	var errResp mistralErrorResponse
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Error.Message != "" {
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return string(body)
}

// Mistral API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
	Pages              []int           `json:"pages,omitempty"`
	ImageLimit         int             `json:"image_limit,omitempty"`
	ImageMinSize       int             `json:"image_min_size,omitempty"`
}

type mistralDocument struct {
	Type        string `json:"type"` // "document_url"
	DocumentURL string `json:"document_url,omitempty"`
}

type mistralUploadResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt int64  `json:"created_at"`
}

type mistralSignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type mistralErrorResponse struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interface
var _ DocumentOCR = (*MistralClient)(nil)
