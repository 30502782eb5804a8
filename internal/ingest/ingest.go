// Package ingest runs one document end to end: existence guard, remote OCR
// submission, reconciliation, and the final durable write into the vault.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/vellum-md/vellum/internal/notify"
	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/reconcile"
	"github.com/vellum-md/vellum/internal/vault"
)

var (
	// ErrAlreadyExists means the destination document is present; the
	// pipeline never overwrites prior output.
	ErrAlreadyExists = errors.New("document already ingested")
	// ErrMissingAPIKey means no credential was configured for the OCR
	// provider; nothing is uploaded.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrRemote wraps upload, signed URL, and OCR failures.
	ErrRemote = errors.New("remote OCR failed")
	// ErrWrite wraps folder preparation and final write failures.
	ErrWrite = errors.New("failed to write document")
)

// Source identifies one PDF to ingest. Name is the base name without
// extension and determines every destination path; Path locates the raw
// bytes inside the vault.
type Source struct {
	Name string
	Path string
}

// Config configures an Ingestor.
type Config struct {
	Store      *vault.Store
	Layout     vault.Layout
	OCR        providers.DocumentOCR
	Reconciler *reconcile.Reconciler
	Notifier   notify.Notifier
	APIKey     string
	Logger     *slog.Logger
}

// Ingestor processes single documents. Safe for concurrent use; each call
// touches only paths derived from its own source name.
type Ingestor struct {
	store      *vault.Store
	layout     vault.Layout
	ocr        providers.DocumentOCR
	reconciler *reconcile.Reconciler
	notifier   notify.Notifier
	apiKey     string
	logger     *slog.Logger
}

// New creates an Ingestor from cfg.
func New(cfg Config) *Ingestor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &Ingestor{
		store:      cfg.Store,
		layout:     cfg.Layout,
		ocr:        cfg.OCR,
		reconciler: cfg.Reconciler,
		notifier:   notifier,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Ingest processes src: guard check, upload, OCR, reconcile, write. Steps
// run strictly in that order and any failure short-circuits. Exactly one
// terminal notification is emitted per call.
func (ing *Ingestor) Ingest(ctx context.Context, src Source) error {
	log := ing.logger.With("document", src.Name)
	notePath := ing.layout.NotePath(src.Name)

	log.Info("starting ingestion", "source", src.Path, "note", notePath)
	ing.notifier.Notify(fmt.Sprintf("Processing %s...", src.Name), 0)

	if ing.store.Exists(notePath) {
		log.Warn("destination already exists", "note", notePath)
		ing.notifier.Notify(fmt.Sprintf("%s already exists, skipping", notePath), 5*time.Second)
		return fmt.Errorf("%w: %s", ErrAlreadyExists, notePath)
	}

	if ing.apiKey == "" {
		log.Error("no API key configured")
		ing.notifier.Notify("Mistral API key is not set", 5*time.Second)
		return ErrMissingAPIKey
	}

	data, err := ing.store.ReadBinary(src.Path)
	if err != nil {
		log.Error("failed to read source", "path", src.Path, "error", err)
		ing.notifier.Notify(fmt.Sprintf("Failed to read %s", src.Path), 5*time.Second)
		return fmt.Errorf("failed to read source %s: %w", src.Path, err)
	}

	// Informational only; the remote service is the authority on
	// whether the PDF parses.
	if pages, err := pdfPageCount(data); err != nil {
		log.Warn("PDF preflight failed", "error", err)
	} else {
		log.Info("PDF preflight", "pages", pages)
	}

	text, err := ing.process(ctx, log, src, data)
	if err != nil {
		ing.notifier.Notify(fmt.Sprintf("Failed to process %s", src.Name), 5*time.Second)
		return err
	}

	if err := ing.store.Create(notePath, text); err != nil {
		log.Error("failed to write document", "note", notePath, "error", err)
		ing.notifier.Notify(fmt.Sprintf("Failed to write %s", notePath), 5*time.Second)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	log.Info("ingestion complete", "note", notePath)
	ing.notifier.Notify(fmt.Sprintf("%s processed", src.Name), 5*time.Second)
	return nil
}

// process runs the remote stages and reconciliation, returning the final
// markdown text.
func (ing *Ingestor) process(ctx context.Context, log *slog.Logger, src Source, data []byte) (string, error) {
	fileName := filepath.Base(src.Path)

	fileID, err := ing.ocr.Upload(ctx, fileName, data)
	if err != nil {
		log.Error("upload failed", "file", fileName, "error", err)
		return "", fmt.Errorf("%w: upload %s: %v", ErrRemote, fileName, err)
	}
	log.Debug("uploaded", "file_id", fileID)

	url, err := ing.ocr.SignedURL(ctx, fileID)
	if err != nil {
		log.Error("signed URL retrieval failed", "file", fileName, "error", err)
		return "", fmt.Errorf("%w: signed URL for %s: %v", ErrRemote, fileName, err)
	}

	res, err := ing.ocr.Process(ctx, url)
	if err != nil {
		log.Error("OCR failed", "file", fileName, "error", err)
		return "", fmt.Errorf("%w: OCR %s: %v", ErrRemote, fileName, err)
	}
	log.Info("OCR complete", "pages", len(res.Pages))

	if ing.layout.MarkdownDir != "" {
		if err := ing.store.EnsureDir(ing.layout.MarkdownDir); err != nil {
			return "", fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	imagesFolder := ing.layout.ImagesFolder()
	if err := ing.store.EnsureDir(imagesFolder); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	text := ing.reconciler.Reconcile(ctx, res, src.Name, imagesFolder)
	if text == "" {
		ing.notifier.Notify(fmt.Sprintf("OCR returned no pages for %s", src.Name), 5*time.Second)
	}
	return text, nil
}

// pdfPageCount counts pages in the raw PDF with relaxed validation.
func pdfPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
