package summarize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Marker is one HTML comment placeholder found in a document. Raw holds the
// full comment including delimiters; Key is the trimmed inner text; Start
// and End are byte offsets of Raw in the document.
type Marker struct {
	Raw   string
	Key   string
	Start int
	End   int
}

var commentPattern = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// ExtractMarkers returns every HTML comment in docText in document order.
// Comments are located through the markdown AST, so comment-looking text
// inside code fences or inline code is not a placeholder.
func ExtractMarkers(docText string) []Marker {
	src := []byte(docText)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var windows [][2]int
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.HTMLBlock:
			if l := v.Lines().Len(); l > 0 {
				windows = append(windows, [2]int{v.Lines().At(0).Start, v.Lines().At(l - 1).Stop})
			}
		case *ast.RawHTML:
			if l := v.Segments.Len(); l > 0 {
				windows = append(windows, [2]int{v.Segments.At(0).Start, v.Segments.At(l - 1).Stop})
			}
		}
		return ast.WalkContinue, nil
	})

	var markers []Marker
	for _, w := range windows {
		window := docText[w[0]:w[1]]
		for _, m := range commentPattern.FindAllStringSubmatchIndex(window, -1) {
			start, end := w[0]+m[0], w[0]+m[1]
			markers = append(markers, Marker{
				Raw:   docText[start:end],
				Key:   strings.TrimSpace(docText[w[0]+m[2] : w[0]+m[3]]),
				Start: start,
				End:   end,
			})
		}
	}

	sort.Slice(markers, func(i, j int) bool {
		return markers[i].Start < markers[j].Start
	})
	return markers
}

// Keys returns the distinct marker keys in first-appearance order.
func Keys(markers []Marker) []string {
	seen := make(map[string]bool, len(markers))
	var keys []string
	for _, m := range markers {
		if !seen[m.Key] {
			seen[m.Key] = true
			keys = append(keys, m.Key)
		}
	}
	return keys
}
