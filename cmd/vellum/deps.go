package main

import (
	"log/slog"
	"os"

	"github.com/vellum-md/vellum/internal/config"
	"github.com/vellum-md/vellum/internal/ingest"
	"github.com/vellum-md/vellum/internal/notify"
	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/reconcile"
	"github.com/vellum-md/vellum/internal/vault"
)

// newLogger builds the CLI logger. Logs go to stderr so structured command
// output on stdout stays parseable.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// loadConfig loads configuration honoring --config and applies the --vault
// override.
func loadConfig() (*config.Config, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := *mgr.Get()
	if vaultDir != "" {
		cfg.Vault.Path = vaultDir
	}
	return &cfg, nil
}

// buildIngestor assembles the single-document pipeline from cfg. The OCR
// client is returned alongside so callers can report its limiter state.
func buildIngestor(cfg *config.Config, logger *slog.Logger) (*ingest.Ingestor, *vault.Store, vault.Layout, *providers.MistralClient) {
	store := vault.NewAtDir(cfg.Vault.Path)
	layout := cfg.VaultLayout()

	mcfg := cfg.ToMistralConfig()
	ocr := providers.NewMistralClient(mcfg)

	mat := reconcile.NewMaterializer(store, logger)
	rec := reconcile.NewReconciler(mat, logger)

	ing := ingest.New(ingest.Config{
		Store:      store,
		Layout:     layout,
		OCR:        ocr,
		Reconciler: rec,
		Notifier:   notify.NewLog(logger),
		APIKey:     mcfg.APIKey,
		Logger:     logger,
	})
	return ing, store, layout, ocr
}
