package main

import (
	"github.com/spf13/cobra"

	"github.com/vellum-md/vellum/internal/cliout"
	"github.com/vellum-md/vellum/version"
)

var (
	cfgFile      string
	vaultDir     string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "PDF to markdown pipeline with Mistral OCR and placeholder summaries",
	Long: `Vellum turns PDFs into reconciled markdown documents inside an
Obsidian-style vault using the Mistral OCR API.

The pipeline includes:
  - Remote OCR with inline image extraction
  - Image materialization and local link reconciliation
  - Batch processing across a bounded worker pool
  - Placeholder-driven summaries generated from a context document`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.vellum/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&vaultDir, "vault", "", "vault directory (overrides the configured vault path)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cliout.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
