package vault

import (
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func newTestStore() *Store {
	return New(afero.NewMemMapFs())
}

func TestLayout_NotePath(t *testing.T) {
	t.Run("with markdown folder", func(t *testing.T) {
		l := Layout{MarkdownDir: "papers"}
		if got := l.NotePath("doc"); got != "papers/doc.md" {
			t.Errorf("expected papers/doc.md, got %s", got)
		}
	})

	t.Run("without markdown folder", func(t *testing.T) {
		l := Layout{}
		if got := l.NotePath("doc"); got != "doc.md" {
			t.Errorf("expected doc.md, got %s", got)
		}
	})
}

func TestLayout_ImagesFolder(t *testing.T) {
	t.Run("default name at root", func(t *testing.T) {
		l := Layout{}
		if got := l.ImagesFolder(); got != "pdf-mistral-images" {
			t.Errorf("expected pdf-mistral-images, got %s", got)
		}
	})

	t.Run("custom name under images dir", func(t *testing.T) {
		l := Layout{ImagesDir: "assets", ImagesFolderName: "ocr"}
		if got := l.ImagesFolder(); got != "assets/ocr" {
			t.Errorf("expected assets/ocr, got %s", got)
		}
	})
}

func TestImageFileName(t *testing.T) {
	tests := []struct {
		name          string
		placeholderID string
		want          string
	}{
		{"strips jpeg suffix", "img-0.jpeg", "doc_img-0.jpeg"},
		{"strips jpg suffix", "img-0.jpg", "doc_img-0.jpeg"},
		{"no suffix", "img-0", "doc_img-0.jpeg"},
		{"png suffix kept", "img-0.png", "doc_img-0.png.jpeg"},
		{"only one suffix stripped", "fig.jpg.jpeg", "doc_fig.jpg.jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFileName("doc", tt.placeholderID); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLayout_ImagePath(t *testing.T) {
	l := Layout{ImagesFolderName: "pdf-mistral-images"}
	want := "pdf-mistral-images/doc_img-0.jpeg"
	if got := l.ImagePath("doc", "img-0.jpeg"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestStore_EnsureDir(t *testing.T) {
	s := newTestStore()

	if err := s.EnsureDir("notes/inbox"); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if !s.Exists("notes/inbox") {
		t.Error("folder should exist after EnsureDir")
	}

	// Second call is a no-op.
	if err := s.EnsureDir("notes/inbox"); err != nil {
		t.Fatalf("EnsureDir should be idempotent: %v", err)
	}

	t.Run("empty path is a no-op", func(t *testing.T) {
		if err := s.EnsureDir(""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestStore_ListFiles(t *testing.T) {
	s := newTestStore()
	if err := s.WriteBinary("inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	if err := s.EnsureDir("inbox/nested"); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	names, err := s.ListFiles("inbox")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 1 || names[0] != "a.pdf" {
		t.Errorf("expected only a.pdf, got %v", names)
	}

	if !s.IsDir("inbox") {
		t.Error("inbox should be a folder")
	}
	if s.IsDir("inbox/a.pdf") {
		t.Error("a.pdf is not a folder")
	}
	if s.IsDir("missing") {
		t.Error("missing path is not a folder")
	}

	if _, err := s.ListFiles("missing"); err == nil {
		t.Error("expected error listing a missing folder")
	}
}

func TestStore_WriteBinary(t *testing.T) {
	s := newTestStore()

	data := []byte{0xff, 0xd8, 0xff}
	if err := s.WriteBinary("images/doc_img-0.jpeg", data); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}

	got, err := s.ReadBinary("images/doc_img-0.jpeg")
	if err != nil {
		t.Fatalf("ReadBinary failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("expected %v, got %v", data, got)
	}

	t.Run("overwrites existing content", func(t *testing.T) {
		if err := s.WriteBinary("images/doc_img-0.jpeg", []byte{0x01}); err != nil {
			t.Fatalf("WriteBinary failed: %v", err)
		}
		got, _ := s.ReadBinary("images/doc_img-0.jpeg")
		if len(got) != 1 || got[0] != 0x01 {
			t.Errorf("expected overwritten content, got %v", got)
		}
	})
}

func TestStore_Create(t *testing.T) {
	t.Run("creates new file with parents", func(t *testing.T) {
		s := newTestStore()
		if err := s.Create("papers/doc.md", "# Title"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got, err := s.Read("papers/doc.md")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if got != "# Title" {
			t.Errorf("expected # Title, got %s", got)
		}
	})

	t.Run("fails when file exists", func(t *testing.T) {
		s := newTestStore()
		if err := s.Create("doc.md", "first"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		err := s.Create("doc.md", "second")
		if !errors.Is(err, ErrExists) {
			t.Fatalf("expected ErrExists, got %v", err)
		}

		// Prior content untouched.
		got, _ := s.Read("doc.md")
		if got != "first" {
			t.Errorf("expected first, got %s", got)
		}
	})

	t.Run("concurrent creates yield one winner", func(t *testing.T) {
		s := newTestStore()

		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Create("doc.md", "content")
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, ErrExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("expected exactly 1 successful create, got %d", succeeded)
		}
	})
}

func TestStore_Modify(t *testing.T) {
	s := newTestStore()

	t.Run("fails when file missing", func(t *testing.T) {
		err := s.Modify("doc.md", "text")
		if !errors.Is(err, ErrNotExists) {
			t.Fatalf("expected ErrNotExists, got %v", err)
		}
	})

	t.Run("replaces existing content", func(t *testing.T) {
		if err := s.Create("doc.md", "old"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := s.Modify("doc.md", "new"); err != nil {
			t.Fatalf("Modify failed: %v", err)
		}
		got, _ := s.Read("doc.md")
		if got != "new" {
			t.Errorf("expected new, got %s", got)
		}
	})
}

func TestStore_Read(t *testing.T) {
	s := newTestStore()

	if _, err := s.Read("missing.md"); !errors.Is(err, ErrNotExists) {
		t.Errorf("expected ErrNotExists, got %v", err)
	}
}
