// Package reconcile merges remote OCR results into a single local markdown
// document: pages are ordered by index, inline image payloads are written
// into the vault, and image references are rewritten to Obsidian embeds
// pointing at the materialized files.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/vellum-md/vellum/internal/providers"
	"github.com/vellum-md/vellum/internal/vault"
)

// Reconciler turns an OCR result into reconciled markdown.
type Reconciler struct {
	mat    *Materializer
	logger *slog.Logger
}

// NewReconciler creates a reconciler that materializes images through mat.
func NewReconciler(mat *Materializer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		mat:    mat,
		logger: logger,
	}
}

// Reconcile builds the markdown document for res. Pages are emitted sorted
// by index ascending (stable on ties), each followed by one blank line.
// Every image that materializes gets its references rewritten to
// ![[<imagesFolder>/<file>]] with forward slashes; images that fail to
// materialize leave their references untouched. Output is byte-identical
// across runs for the same input.
func (r *Reconciler) Reconcile(ctx context.Context, res *providers.OCRResult, baseName, imagesFolder string) string {
	if res == nil || len(res.Pages) == 0 {
		r.logger.Warn("OCR result has no pages", "document", baseName)
		return ""
	}

	pages := make([]providers.Page, len(res.Pages))
	copy(pages, res.Pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Index < pages[j].Index
	})

	var b strings.Builder
	for _, page := range pages {
		markdown := page.Markdown
		for _, img := range page.Images {
			fileName := vault.ImageFileName(baseName, img.ID)
			if err := r.mat.Materialize(ctx, img.ImageBase64, imagesFolder, fileName); err != nil {
				r.logger.Warn("skipping image",
					"document", baseName,
					"page", page.Index,
					"image", img.ID,
					"error", err,
				)
				continue
			}
			markdown = rewriteImageRefs(markdown, img.ID, imagesFolder+"/"+fileName)
		}
		b.WriteString(markdown)
		b.WriteString("\n\n")
	}
	return b.String()
}

// rewriteImageRefs replaces every markdown image reference ![alt](target)
// whose target contains id as a literal substring with ![[link]]. Matching
// is containment, not equality, so differently wrapped references to the
// same placeholder all get rewritten.
func rewriteImageRefs(markdown, id, link string) string {
	var b strings.Builder
	b.Grow(len(markdown))

	i := 0
	for i < len(markdown) {
		next := strings.Index(markdown[i:], "![")
		if next < 0 {
			b.WriteString(markdown[i:])
			break
		}
		start := i + next
		b.WriteString(markdown[i:start])

		ref, target, end, ok := scanImageRef(markdown, start)
		if !ok {
			b.WriteString("![")
			i = start + 2
			continue
		}
		if strings.Contains(target, id) {
			b.WriteString("![[")
			b.WriteString(link)
			b.WriteString("]]")
		} else {
			b.WriteString(ref)
		}
		i = end
	}
	return b.String()
}

// scanImageRef parses one ![alt](target) reference starting at the "!["
// byte offset. Brackets in the alt text and parentheses in the target are
// tracked so nested pairs stay inside one reference. Returns the full
// reference, its target, and the offset one past the closing parenthesis.
func scanImageRef(s string, start int) (ref, target string, end int, ok bool) {
	i := start + 2
	depth := 1
	for i < len(s) && depth > 0 {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		}
		i++
	}
	if depth != 0 || i >= len(s) || s[i] != '(' {
		return "", "", 0, false
	}

	i++
	targetStart := i
	depth = 1
	for i < len(s) && depth > 0 {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		i++
	}
	if depth != 0 {
		return "", "", 0, false
	}
	return s[start:i], s[targetStart : i-1], i, true
}
