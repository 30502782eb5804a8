package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/vault"
)

// Config holds vellum configuration.
// Loaded from: ./config.yaml or ~/.vellum/config.yaml
type Config struct {
	Vault   VaultCfg   `mapstructure:"vault" yaml:"vault"`
	Mistral MistralCfg `mapstructure:"mistral" yaml:"mistral"`
	Batch   BatchCfg   `mapstructure:"batch" yaml:"batch"`
	Summary SummaryCfg `mapstructure:"summary" yaml:"summary"`
}

// VaultCfg locates the vault and the folders written inside it.
type VaultCfg struct {
	Path             string `mapstructure:"path" yaml:"path"`                             // Vault root directory
	MarkdownFolder   string `mapstructure:"markdown_folder" yaml:"markdown_folder"`       // Folder for reconciled documents ("" = vault root)
	ImagesFolder     string `mapstructure:"images_folder" yaml:"images_folder"`           // Parent folder for the images folder ("" = vault root)
	ImagesFolderName string `mapstructure:"images_folder_name" yaml:"images_folder_name"` // Folder that holds extracted images
}

// MistralCfg configures the OCR and chat clients.
type MistralCfg struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	OCRModel       string  `mapstructure:"ocr_model" yaml:"ocr_model"`
	ChatModel      string  `mapstructure:"chat_model" yaml:"chat_model"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// BatchCfg bounds concurrent document processing.
type BatchCfg struct {
	Workers int `mapstructure:"workers" yaml:"workers"` // Concurrent documents per batch
}

// SummaryCfg holds the placeholder-to-instruction mapping, in order.
type SummaryCfg struct {
	Prompts []PromptCfg `mapstructure:"prompts" yaml:"prompts"`
}

// PromptCfg maps a marker comment key to its generation instruction.
type PromptCfg struct {
	Key    string `mapstructure:"key" yaml:"key"`       // Trimmed inner text of the marker comment
	Prompt string `mapstructure:"prompt" yaml:"prompt"` // Instruction prepended to the context document
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultCfg{
			Path:             ".",
			ImagesFolderName: vault.DefaultImagesFolderName,
		},
		Mistral: MistralCfg{
			APIKey:         "${MISTRAL_API_KEY}",
			BaseURL:        providers.MistralBaseURL,
			OCRModel:       providers.MistralOCRModel,
			ChatModel:      providers.MistralChatModel,
			RateLimit:      6.0,
			TimeoutSeconds: 120,
		},
		Batch: BatchCfg{
			Workers: 3,
		},
		Summary: SummaryCfg{
			Prompts: []PromptCfg{
				{
					Key:    "このドキュメントの要約を生成してください",
					Prompt: "以下のドキュメント全体を読み、要点をまとめた簡潔な要約をマークダウン形式で生成してください。",
				},
				{
					Key:    "研究の背景と目的について",
					Prompt: "以下のドキュメントから、研究の背景と目的を抽出し、マークダウン形式で説明してください。",
				},
				{
					Key:    "研究で使用された方法論、実験設計、分析手法について",
					Prompt: "以下のドキュメントから、研究で使用された方法論、実験設計、分析手法を抽出し、マークダウン形式で説明してください。",
				},
				{
					Key:    "研究の主要な発見と結果について",
					Prompt: "以下のドキュメントから、研究の主要な発見と結果を抽出し、マークダウン形式で説明してください。",
				},
				{
					Key:    "研究の結論と意義について",
					Prompt: "以下のドキュメントから、研究の結論とその意義を抽出し、マークダウン形式で説明してください。",
				},
			},
		},
	}
}

// Validate checks constraints the rest of the pipeline relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vault.Path) == "" {
		return fmt.Errorf("vault.path must be set")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be a positive integer, got %d", c.Batch.Workers)
	}
	seen := make(map[string]int, len(c.Summary.Prompts))
	for i, p := range c.Summary.Prompts {
		if strings.TrimSpace(p.Key) == "" {
			return fmt.Errorf("summary.prompts[%d].key must not be empty", i)
		}
		if j, ok := seen[p.Key]; ok {
			return fmt.Errorf("summary.prompts[%d].key duplicates summary.prompts[%d]: %q", i, j, p.Key)
		}
		seen[p.Key] = i
	}
	return nil
}

// VaultLayout builds the path layout used for destination naming.
func (c *Config) VaultLayout() vault.Layout {
	return vault.Layout{
		MarkdownDir:      strings.TrimSuffix(c.Vault.MarkdownFolder, "/"),
		ImagesDir:        strings.TrimSuffix(c.Vault.ImagesFolder, "/"),
		ImagesFolderName: c.Vault.ImagesFolderName,
	}
}

// ToMistralConfig converts the config into the OCR client config.
// It resolves ${ENV_VAR} references in the API key.
func (c *Config) ToMistralConfig() providers.MistralConfig {
	return providers.MistralConfig{
		APIKey:        ResolveEnvVars(c.Mistral.APIKey),
		BaseURL:       c.Mistral.BaseURL,
		Model:         c.Mistral.OCRModel,
		Timeout:       time.Duration(c.Mistral.TimeoutSeconds) * time.Second,
		IncludeImages: true,
		RateLimit:     c.Mistral.RateLimit,
	}
}

// ToChatConfig converts the config into the chat client config.
// It resolves ${ENV_VAR} references in the API key.
func (c *Config) ToChatConfig() providers.ChatConfig {
	return providers.ChatConfig{
		APIKey:  ResolveEnvVars(c.Mistral.APIKey),
		BaseURL: c.Mistral.BaseURL,
		Model:   c.Mistral.ChatModel,
		Timeout: time.Duration(c.Mistral.TimeoutSeconds) * time.Second,
	}
}

// PromptKeys returns the configured marker keys in configuration order.
func (s SummaryCfg) PromptKeys() []string {
	keys := make([]string, len(s.Prompts))
	for i, p := range s.Prompts {
		keys[i] = p.Key
	}
	return keys
}
