package vault

import (
	"fmt"
	"strings"
)

// DefaultImagesFolderName is the folder created for extracted images when no
// override is configured.
const DefaultImagesFolderName = "pdf-mistral-images"

// Layout computes destination paths inside the vault. Folder fields are
// vault-relative; an empty folder means the vault root. Paths are built by
// plain "/" concatenation to keep the on-disk naming stable across releases.
type Layout struct {
	// MarkdownDir is the folder for reconciled documents.
	MarkdownDir string
	// ImagesDir is the parent folder under which the images folder lives.
	ImagesDir string
	// ImagesFolderName is the folder that holds extracted images.
	ImagesFolderName string
}

// NotePath returns the destination path for a document's reconciled markdown.
func (l Layout) NotePath(base string) string {
	if l.MarkdownDir == "" {
		return base + ".md"
	}
	return l.MarkdownDir + "/" + base + ".md"
}

// ImagesFolder returns the folder that holds extracted images.
func (l Layout) ImagesFolder() string {
	name := l.ImagesFolderName
	if name == "" {
		name = DefaultImagesFolderName
	}
	if l.ImagesDir == "" {
		return name
	}
	return l.ImagesDir + "/" + name
}

// ImageFileName returns the file name for an extracted image. The placeholder
// id loses a trailing .jpg/.jpeg before the fixed .jpeg extension is appended,
// so the same (document, placeholder) pair always maps to the same name.
func ImageFileName(base, placeholderID string) string {
	id := placeholderID
	switch {
	case strings.HasSuffix(id, ".jpeg"):
		id = strings.TrimSuffix(id, ".jpeg")
	case strings.HasSuffix(id, ".jpg"):
		id = strings.TrimSuffix(id, ".jpg")
	}
	return fmt.Sprintf("%s_%s.jpeg", base, id)
}

// ImagePath returns the destination path for an extracted image.
func (l Layout) ImagePath(base, placeholderID string) string {
	return l.ImagesFolder() + "/" + ImageFileName(base, placeholderID)
}
