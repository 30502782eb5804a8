package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellum-md/vellum/internal/batch"
	"github.com/vellum-md/vellum/internal/cliout"
	"github.com/vellum-md/vellum/internal/ingest"
	"github.com/vellum-md/vellum/internal/notify"
	"github.com/vellum-md/vellum/internal/providers"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "OCR PDFs into reconciled markdown notes",
	Long: `Run PDFs through Mistral OCR and write one reconciled markdown note
per document into the vault. Paths are vault-relative; a folder argument
expands to the PDFs directly inside it.

Documents whose destination note already exists are skipped; existing
notes are never overwritten.

Examples:
  vellum ingest inbox                  # every PDF in <vault>/inbox
  vellum ingest papers/study-1.pdf     # a single document
  vellum ingest inbox --workers 5      # override the worker bound`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ing, store, layout, ocr := buildIngestor(cfg, logger)

		sources, err := ingest.Discover(store, args)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no PDF files found")
		}

		keep, skipped := ingest.FilterNew(store, layout, sources)
		for _, src := range skipped {
			logger.Info("already ingested, skipping", "document", src.Name)
		}

		workers := cfg.Batch.Workers
		if ingestWorkers > 0 {
			workers = ingestWorkers
		}

		runner := batch.New(batch.Config{
			Ingestor: ing,
			Workers:  workers,
			Notifier: notify.NewLog(logger),
			Logger:   logger,
		})
		report := runner.Run(ctx, keep)

		out := struct {
			Batch       batch.Report                `json:"batch" yaml:"batch"`
			Skipped     int                         `json:"skipped" yaml:"skipped"`
			RateLimiter providers.RateLimiterStatus `json:"rate_limiter" yaml:"rate_limiter"`
		}{report, len(skipped), ocr.LimiterStatus()}
		if err := cliout.Output(out); err != nil {
			return err
		}

		if report.Failed > 0 {
			return fmt.Errorf("%d of %d documents failed", report.Failed, report.Total)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent documents (default: from config)")

	rootCmd.AddCommand(ingestCmd)
}
