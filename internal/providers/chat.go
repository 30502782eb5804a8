package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	MistralChatName  = "mistral-chat"
	MistralChatModel = "mistral-small-latest"
)

// ChatConfig holds configuration for the chat completion client. The client
// speaks the OpenAI-compatible completions API, which Mistral exposes on the
// same base URL as the OCR endpoints.
type ChatConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  float64      // Requests per second
	MaxRetries int          // SDK transport retries (default: 0, failures surface immediately)
	HTTPClient *http.Client // Optional (tests)
}

// ChatClient implements Generator using the official OpenAI SDK pointed at
// an OpenAI-compatible endpoint.
type ChatClient struct {
	model   string
	limiter *RateLimiter
	client  openai.Client
}

// NewChatClient creates a new chat completion client.
func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralChatModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1.0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithBaseURL(cfg.BaseURL),
	}

	return &ChatClient{
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *ChatClient) Name() string {
	return MistralChatName
}

// LimiterStatus returns the current rate limiter status.
func (c *ChatClient) LimiterStatus() RateLimiterStatus {
	return c.limiter.Status()
}

// Generate sends a single-turn completion request and returns the text.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies the API is reachable and the API key is valid.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("models list failed: %w", c.mapError(err))
	}
	if page == nil {
		return fmt.Errorf("models list returned nil response")
	}
	return nil
}

// mapError converts SDK errors into the provider error shapes.
func (c *ChatClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			c.limiter.Record429(retryAfter)
			return &RateLimitError{
				Message:    fmt.Sprintf("chat completion rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("chat completion error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("chat completion error (status %d)", apiErr.StatusCode)
	}
	return err
}

// Verify interface
var _ Generator = (*ChatClient)(nil)
