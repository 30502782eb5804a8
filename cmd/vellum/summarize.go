package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellum-md/vellum/internal/notify"
	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/summarize"
	"github.com/vellum-md/vellum/internal/vault"
)

var summarizeContextPath string

var summarizeCmd = &cobra.Command{
	Use:   "summarize <note>",
	Short: "Fill placeholder comments in a note with generated summaries",
	Long: `Scan a markdown note for HTML comment placeholders whose keys match
the configured prompts and replace each with a generated summary.

By default the note itself is the generation context; pass --context to
use another document instead.

Examples:
  vellum summarize papers/study.md
  vellum summarize papers/study.md --context papers/study-full.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := vault.NewAtDir(cfg.Vault.Path)
		target := args[0]

		contextPath := summarizeContextPath
		if contextPath == "" {
			contextPath = target
		}
		contextText, err := store.Read(contextPath)
		if err != nil {
			return fmt.Errorf("failed to read context document: %w", err)
		}

		ccfg := cfg.ToChatConfig()
		if ccfg.APIKey == "" {
			return fmt.Errorf("mistral API key is not set")
		}

		prompts := make([]summarize.Prompt, len(cfg.Summary.Prompts))
		for i, p := range cfg.Summary.Prompts {
			prompts[i] = summarize.Prompt{Key: p.Key, Instruction: p.Prompt}
		}

		chat := providers.NewChatClient(ccfg)
		s := summarize.New(summarize.Config{
			Store:     store,
			Generator: chat,
			Prompts:   prompts,
			Notifier:  notify.NewLog(logger),
			Logger:    logger,
		})
		if err := s.Summarize(ctx, target, contextText); err != nil {
			return err
		}

		status := chat.LimiterStatus()
		logger.Info("generation complete",
			"requests", status.TotalConsumed,
			"throttled", status.TotalWaited,
		)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(
		&summarizeContextPath, "context", "", "context document (default: the note itself)",
	)

	rootCmd.AddCommand(summarizeCmd)
}
