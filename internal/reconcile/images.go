package reconcile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vellum-md/vellum/internal/vault"
)

// ErrMalformedPayload signals an image payload that cannot be materialized:
// empty, truncated by the provider, an unknown media type, or invalid base64.
// Callers skip the image and keep the document.
var ErrMalformedPayload = errors.New("malformed image payload")

// truncationToken marks payloads the provider redacted instead of inlining
// (large or duplicate image data).
const truncationToken = "..."

// payloadPrefixes are the data-URI media types the OCR provider inlines.
var payloadPrefixes = []string{
	"data:image/jpeg;base64,",
	"data:image/jpg;base64,",
	"data:image/png;base64,",
}

// Materializer decodes inline OCR image payloads and writes them to the vault.
type Materializer struct {
	store  *vault.Store
	logger *slog.Logger
}

// NewMaterializer creates a materializer writing through the given store.
func NewMaterializer(store *vault.Store, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:  store,
		logger: logger,
	}
}

// Materialize decodes payload and writes the bytes to folder/fileName,
// creating intermediate folders as needed. Re-running for the same
// destination produces a byte-identical file.
func (m *Materializer) Materialize(ctx context.Context, payload, folder, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if payload == "" {
		return fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	if strings.HasSuffix(payload, truncationToken) {
		return fmt.Errorf("%w: truncated payload", ErrMalformedPayload)
	}

	body := ""
	matched := false
	for _, prefix := range payloadPrefixes {
		if strings.HasPrefix(payload, prefix) {
			body = payload[len(prefix):]
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("%w: unknown media type", ErrMalformedPayload)
	}

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	path := folder + "/" + fileName
	if err := m.store.WriteBinary(path, raw); err != nil {
		return fmt.Errorf("failed to write image %s: %w", path, err)
	}

	m.logger.Debug("materialized image", "path", path, "bytes", len(raw))
	return nil
}
