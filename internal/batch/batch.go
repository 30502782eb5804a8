// Package batch fans single-document ingestion out across a bounded pool of
// workers and reports aggregate counts.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vellum-md/vellum/internal/ingest"
	"github.com/vellum-md/vellum/internal/notify"
)

// Ingestor is the single-document pipeline the runner fans out.
type Ingestor interface {
	Ingest(ctx context.Context, src ingest.Source) error
}

// Report aggregates one batch run. Succeeded plus Failed always equals
// Total; documents skipped by cancellation count as failed.
type Report struct {
	ID        string `json:"id" yaml:"id"`
	Total     int    `json:"total" yaml:"total"`
	Succeeded int    `json:"succeeded" yaml:"succeeded"`
	Failed    int    `json:"failed" yaml:"failed"`
}

// Config configures a Runner.
type Config struct {
	Ingestor Ingestor
	Workers  int
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Runner drives an Ingestor across many sources with bounded concurrency.
type Runner struct {
	ingestor Ingestor
	workers  int
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Runner. Workers below one are raised to one; the
// configuration layer validates the real bound before it gets here.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		ingestor: cfg.Ingestor,
		workers:  workers,
		notifier: notifier,
		logger:   logger,
	}
}

// Run ingests every source and returns the aggregate report. Workers pop
// from a shared queue, so no source is processed twice; one document's
// failure never stops the others. Run blocks until the queue drains.
func (r *Runner) Run(ctx context.Context, sources []ingest.Source) Report {
	report := Report{ID: uuid.New().String(), Total: len(sources)}
	if len(sources) == 0 {
		return report
	}

	log := r.logger.With("batch_id", report.ID)

	workers := r.workers
	if workers > len(sources) {
		workers = len(sources)
	}

	queue := make(chan ingest.Source, len(sources))
	for _, src := range sources {
		queue <- src
	}
	close(queue)

	log.Info("starting batch", "documents", len(sources), "workers", workers)
	r.notifier.Notify(fmt.Sprintf("Processing %d PDF files...", len(sources)), 0)

	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			for src := range queue {
				if gctx.Err() != nil {
					failed.Add(1)
					log.Warn("batch cancelled, skipping document",
						"worker", worker,
						"document", src.Name,
					)
					continue
				}
				if err := r.ingestor.Ingest(gctx, src); err != nil {
					failed.Add(1)
					log.Warn("document failed",
						"worker", worker,
						"document", src.Name,
						"error", err,
					)
					continue
				}
				succeeded.Add(1)
				log.Debug("document done", "worker", worker, "document", src.Name)
			}
			// Errors are counted, never returned; a failure must not
			// cancel the sibling workers.
			return nil
		})
	}
	_ = g.Wait()

	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())

	log.Info("batch complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	r.notifier.Notify(
		fmt.Sprintf("Batch complete: %d succeeded, %d failed", report.Succeeded, report.Failed),
		5*time.Second,
	)
	return report
}
