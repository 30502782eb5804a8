// Package summarize fills HTML comment placeholders in a vault document
// with generated text, using another document as the generation context.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vellum-md/vellum/internal/notify"
	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/vault"
)

// ErrNoMatchingKeys means the target document contains no placeholder whose
// key is configured. The error text carries the configured key list.
var ErrNoMatchingKeys = errors.New("no matching placeholder keys")

// Prompt pairs a placeholder key with the instruction sent to the generator
// when that key is found.
type Prompt struct {
	Key         string
	Instruction string
}

// Config configures a Summarizer.
type Config struct {
	Store     *vault.Store
	Generator providers.Generator
	Prompts   []Prompt
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Summarizer replaces placeholder markers with generated summaries.
type Summarizer struct {
	store    *vault.Store
	gen      providers.Generator
	prompts  []Prompt
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Summarizer from cfg.
func New(cfg Config) *Summarizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &Summarizer{
		store:    cfg.Store,
		gen:      cfg.Generator,
		prompts:  cfg.Prompts,
		notifier: notifier,
		logger:   logger,
	}
}

// Summarize fills every configured placeholder found in the document at
// targetPath. Generation runs sequentially in configured prompt order; for
// each key the first marker in document order is replaced, and a key
// configured more than once generates once, from its first entry. Any
// generation failure aborts the run before anything is written; on success
// the document is persisted once.
func (s *Summarizer) Summarize(ctx context.Context, targetPath, contextText string) error {
	log := s.logger.With("target", targetPath)

	docText, err := s.store.Read(targetPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", targetPath, err)
	}

	markers := ExtractMarkers(docText)
	present := make(map[string]bool, len(markers))
	for _, m := range markers {
		present[m.Key] = true
	}

	// One prompt per key: the first configured entry wins.
	var matched []Prompt
	taken := make(map[string]bool, len(s.prompts))
	for _, p := range s.prompts {
		if present[p.Key] && !taken[p.Key] {
			matched = append(matched, p)
			taken[p.Key] = true
		}
	}
	if len(matched) == 0 {
		keys := make([]string, len(s.prompts))
		for i, p := range s.prompts {
			keys[i] = p.Key
		}
		list := strings.Join(keys, ", ")
		log.Warn("no matching placeholders", "configured_keys", list)
		s.notifier.Notify(fmt.Sprintf("No matching placeholders. Configured keys: %s", list), 5*time.Second)
		return fmt.Errorf("%w: configured keys [%s]", ErrNoMatchingKeys, list)
	}

	// First marker per key, document order.
	firstSpan := make(map[string]Marker, len(matched))
	for _, m := range markers {
		if _, ok := firstSpan[m.Key]; !ok {
			firstSpan[m.Key] = m
		}
	}

	type replacement struct {
		span Marker
		text string
	}
	repls := make([]replacement, 0, len(matched))

	// Generation calls are rate sensitive; one at a time, never
	// concurrent.
	for _, p := range matched {
		log.Info("generating summary", "key", p.Key)
		s.notifier.Notify(fmt.Sprintf("Generating: %s", p.Key), 0)

		out, err := s.gen.Generate(ctx, p.Instruction+"\n\n"+contextText)
		if err != nil {
			log.Error("generation failed", "key", p.Key, "error", err)
			s.notifier.Notify(fmt.Sprintf("Generation failed for %s", p.Key), 5*time.Second)
			return fmt.Errorf("generation failed for %q: %w", p.Key, err)
		}
		repls = append(repls, replacement{span: firstSpan[p.Key], text: out})
	}

	// Back to front so earlier offsets stay valid.
	sort.Slice(repls, func(i, j int) bool {
		return repls[i].span.Start > repls[j].span.Start
	})
	updated := docText
	for _, r := range repls {
		updated = updated[:r.span.Start] + r.text + updated[r.span.End:]
	}

	if err := s.store.Modify(targetPath, updated); err != nil {
		log.Error("failed to write document", "error", err)
		s.notifier.Notify(fmt.Sprintf("Failed to write %s", targetPath), 5*time.Second)
		return fmt.Errorf("failed to write %s: %w", targetPath, err)
	}

	log.Info("summaries written", "placeholders", len(repls))
	s.notifier.Notify(fmt.Sprintf("Added %d summaries to %s", len(repls), targetPath), 5*time.Second)
	return nil
}
