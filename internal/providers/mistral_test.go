package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMistralClient_Upload(t *testing.T) {
	t.Run("successful upload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/files" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			if purpose := r.FormValue("purpose"); purpose != "ocr" {
				t.Errorf("purpose = %q, want ocr", purpose)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing file part: %v", err)
			}
			defer file.Close()
			if header.Filename != "paper.pdf" {
				t.Errorf("filename = %q, want paper.pdf", header.Filename)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(mistralUploadResponse{
				ID:       "file-123",
				Object:   "file",
				Filename: "paper.pdf",
				Purpose:  "ocr",
			})
		}))
		defer server.Close()

		client := NewMistralClient(MistralConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		id, err := client.Upload(context.Background(), "paper.pdf", []byte("%PDF-1.4 fake"))
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if id != "file-123" {
			t.Errorf("id = %q, want file-123", id)
		}
	})

	t.Run("error status surfaces message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthorized"}`))
		}))
		defer server.Close()

		client := NewMistralClient(MistralConfig{APIKey: "bad-key", BaseURL: server.URL})

		_, err := client.Upload(context.Background(), "paper.pdf", []byte("data"))
		if err == nil {
			t.Fatal("expected error for 401 response")
		}
		if !strings.Contains(err.Error(), "status 401") {
			t.Errorf("error should mention status 401: %v", err)
		}
		if !strings.Contains(err.Error(), "Unauthorized") {
			t.Errorf("error should carry the API message: %v", err)
		}
	})

	t.Run("missing file id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"object":"file"}`))
		}))
		defer server.Close()

		client := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: server.URL})

		if _, err := client.Upload(context.Background(), "paper.pdf", []byte("data")); err == nil {
			t.Fatal("expected error for response without id")
		}
	})
}

func TestMistralClient_SignedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/file-123/url" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != "GET" {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mistralSignedURLResponse{
			URL:       "https://storage.example/file-123?sig=abc",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: server.URL})

	url, err := client.SignedURL(context.Background(), "file-123")
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	if url != "https://storage.example/file-123?sig=abc" {
		t.Errorf("unexpected url: %s", url)
	}
}

func TestMistralClient_Process(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content-type: %s", ct)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req.Document.Type != "document_url" {
				t.Errorf("document type = %q, want document_url", req.Document.Type)
			}
			if req.Document.DocumentURL != "https://storage.example/file-123" {
				t.Errorf("unexpected document_url: %s", req.Document.DocumentURL)
			}
			if !req.IncludeImageBase64 {
				t.Error("expected include_image_base64 = true")
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(OCRResult{
				Model: "mistral-ocr-latest",
				Pages: []Page{
					{
						Index:    1,
						Markdown: "Second page",
					},
					{
						Index:    0,
						Markdown: "![fig](img-0.jpeg)",
						Images: []PageImage{
							{ID: "img-0.jpeg", ImageBase64: "data:image/jpeg;base64,AAAA"},
						},
					},
				},
				UsageInfo: &UsageInfo{PagesProcessed: 2},
			})
		}))
		defer server.Close()

		client := NewMistralClient(MistralConfig{
			APIKey:        "test-key",
			BaseURL:       server.URL,
			IncludeImages: true,
		})

		result, err := client.Process(context.Background(), "https://storage.example/file-123")
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(result.Pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(result.Pages))
		}
		// Pages arrive in wire order; sorting is the reconciler's job.
		if result.Pages[0].Index != 1 {
			t.Errorf("first page index = %d, want 1", result.Pages[0].Index)
		}
		if result.Pages[1].Images[0].ID != "img-0.jpeg" {
			t.Errorf("unexpected image id: %s", result.Pages[1].Images[0].ID)
		}
		if result.UsageInfo == nil || result.UsageInfo.PagesProcessed != 2 {
			t.Errorf("unexpected usage info: %+v", result.UsageInfo)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"rate limit exceeded"}`))
		}))
		defer server.Close()

		client := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.Process(context.Background(), "https://storage.example/doc")
		if err == nil {
			t.Fatal("expected error for 429 response")
		}
		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T: %v", err, err)
		}
		if rle.RetryAfter != 3*time.Second {
			t.Errorf("RetryAfter = %v, want 3s", rle.RetryAfter)
		}
		if rle.StatusCode != http.StatusTooManyRequests {
			t.Errorf("StatusCode = %d, want 429", rle.StatusCode)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		client := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Process(ctx, "https://storage.example/doc")
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", err)
		}
	})
}

// TestMistralIntegration runs the full upload → signed URL → process flow
// against the real API. Requires MISTRAL_API_KEY and a sample document.
func TestMistralIntegration(t *testing.T) {
	apiKey := os.Getenv("MISTRAL_API_KEY")
	if apiKey == "" {
		t.Skip("MISTRAL_API_KEY not set, skipping integration test")
	}

	samplePath := filepath.Join("testdata", "sample.pdf")
	data, err := os.ReadFile(samplePath)
	if err != nil {
		t.Skipf("no sample document at %s, skipping integration test", samplePath)
	}

	client := NewMistralClient(MistralConfig{
		APIKey:        apiKey,
		IncludeImages: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fileID, err := client.Upload(ctx, "sample.pdf", data)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	t.Logf("uploaded file: %s", fileID)

	url, err := client.SignedURL(ctx, fileID)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}

	result, err := client.Process(ctx, url)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(result.Pages) == 0 {
		t.Fatal("expected at least one page")
	}
	t.Logf("processed %d pages", len(result.Pages))
}
