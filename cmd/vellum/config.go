package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/vellum-md/vellum/internal/cliout"
	"github.com/vellum-md/vellum/internal/providers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and verify configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		shown := *cfg
		shown.Mistral.APIKey = maskKey(cfg.Mistral.APIKey)
		return cliout.Output(shown)
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configuration can reach the Mistral API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ccfg := cfg.ToChatConfig()
		if ccfg.APIKey == "" {
			return fmt.Errorf("mistral API key is not set")
		}
		client := providers.NewChatClient(ccfg)

		baseURL := ccfg.BaseURL
		if baseURL == "" {
			baseURL = providers.MistralBaseURL
		}
		logger.Info("probing Mistral API", "base_url", baseURL)
		err = retry.Do(
			func() error { return client.HealthCheck(ctx) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("Mistral API probe failed: %w", err)
		}

		fmt.Println("Configuration OK")
		return nil
	},
}

// maskKey hides a resolved credential, keeping unresolved ${VAR} references
// readable.
func maskKey(key string) string {
	if key == "" || strings.HasPrefix(key, "${") {
		return key
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)

	rootCmd.AddCommand(configCmd)
}
