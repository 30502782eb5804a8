package ingest

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vellum-md/vellum/internal/vault"
)

// Discover expands vault-relative arguments into ingestion sources. A folder
// argument expands to the PDF files directly inside it; a file argument must
// name an existing PDF. Duplicates collapse and the result is sorted by
// numeric suffix so multi-part documents queue in reading order.
func Discover(store *vault.Store, args []string) ([]Source, error) {
	var paths []string
	seen := make(map[string]bool)

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		p := path.Clean(strings.TrimSuffix(arg, "/"))
		if p == "" {
			p = "."
		}

		if store.IsDir(p) {
			names, err := store.ListFiles(p)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				if !strings.EqualFold(path.Ext(name), ".pdf") {
					continue
				}
				if p == "." {
					add(name)
				} else {
					add(p + "/" + name)
				}
			}
			continue
		}

		if !strings.EqualFold(path.Ext(p), ".pdf") {
			return nil, fmt.Errorf("not a PDF: %s", p)
		}
		if !store.Exists(p) {
			return nil, fmt.Errorf("PDF not found: %s", p)
		}
		add(p)
	}

	sorted := sortPDFsByNumber(paths)
	sources := make([]Source, len(sorted))
	for i, p := range sorted {
		base := path.Base(p)
		sources[i] = Source{
			Name: strings.TrimSuffix(base, path.Ext(base)),
			Path: p,
		}
	}
	return sources, nil
}

// FilterNew splits sources into those whose destination note is absent and
// those already ingested. The per-document guard re-checks; this keeps
// already-done documents out of the batch queue entirely.
func FilterNew(store *vault.Store, layout vault.Layout, sources []Source) (keep, skipped []Source) {
	for _, src := range sources {
		if store.Exists(layout.NotePath(src.Name)) {
			skipped = append(skipped, src)
			continue
		}
		keep = append(keep, src)
	}
	return keep, skipped
}

var pdfNumberSuffix = regexp.MustCompile(`-(\d+)\.pdf$`)

// sortPDFsByNumber sorts PDF paths by their numeric suffix.
// e.g., ["paper-2.pdf", "paper-1.pdf", "paper-10.pdf"] -> ["paper-1.pdf", "paper-2.pdf", "paper-10.pdf"]
func sortPDFsByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.Slice(sorted, func(i, j int) bool {
		mi := pdfNumberSuffix.FindStringSubmatch(sorted[i])
		mj := pdfNumberSuffix.FindStringSubmatch(sorted[j])

		// If both have numbers, sort numerically
		if len(mi) > 1 && len(mj) > 1 {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			if ni != nj {
				return ni < nj
			}
			return sorted[i] < sorted[j]
		}

		// Files without numbers come first
		if len(mi) > 1 {
			return false
		}
		if len(mj) > 1 {
			return true
		}

		// Both without numbers: alphabetical
		return sorted[i] < sorted[j]
	})

	return sorted
}
