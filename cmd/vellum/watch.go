package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vellum-md/vellum/internal/config"
	"github.com/vellum-md/vellum/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Watch a vault folder and ingest PDFs as they arrive",
	Long: `Watch a vault folder (default: inbox) and run ingestion for every PDF
dropped into it. The config file is hot-reloaded, so prompt and rate
limit changes apply to subsequent documents without a restart.

Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		folder := "inbox"
		if len(args) == 1 {
			folder = strings.TrimSuffix(args[0], "/")
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.OnChange(func(cfg *config.Config) {
			logger.Info("configuration reloaded")
		})
		mgr.WatchConfig()

		snapshot := func() *config.Config {
			cfg := *mgr.Get()
			if vaultDir != "" {
				cfg.Vault.Path = vaultDir
			}
			return &cfg
		}

		// The watched directory is fixed at startup; a vault path change
		// in the config requires a restart.
		dir := filepath.Join(snapshot().Vault.Path, filepath.FromSlash(folder))

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Info("watching for PDFs", "dir", dir)

		for {
			select {
			case <-ctx.Done():
				logger.Info("watch stopped")
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.EqualFold(filepath.Ext(name), ".pdf") {
					continue
				}

				// Give the writer time to finish the file.
				time.Sleep(500 * time.Millisecond)

				src := ingest.Source{
					Name: strings.TrimSuffix(name, filepath.Ext(name)),
					Path: folder + "/" + name,
				}
				ing, _, _, _ := buildIngestor(snapshot(), logger)
				if err := ing.Ingest(ctx, src); err != nil {
					if errors.Is(err, ingest.ErrAlreadyExists) {
						logger.Info("already ingested, skipping", "document", src.Name)
						continue
					}
					logger.Error("ingestion failed", "document", src.Name, "error", err)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Error("watch error", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
