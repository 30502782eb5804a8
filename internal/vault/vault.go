// Package vault provides storage for reconciled documents and extracted
// images. All paths are vault-relative and use forward slashes regardless
// of the host platform.
package vault

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/spf13/afero"
)

// ErrExists is returned when creating a file at a path that already holds one.
var ErrExists = errors.New("file already exists")

// ErrNotExists is returned when modifying or reading a file that is absent.
var ErrNotExists = errors.New("file does not exist")

// Store is a vault rooted at a directory. Creates are serialized per
// destination path so that check-then-create is atomic under concurrent
// writers targeting the same path.
type Store struct {
	fs afero.Fs

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Store over the given filesystem.
func New(fs afero.Fs) *Store {
	return &Store{
		fs:    fs,
		locks: make(map[string]*sync.Mutex),
	}
}

// NewAtDir returns a Store rooted at dir on the host filesystem.
func NewAtDir(dir string) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// pathLock returns the mutex guarding writes to a destination path.
func (s *Store) pathLock(p string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[p]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[p] = lock
	}
	return lock
}

// Exists reports whether a file or folder is present at path.
func (s *Store) Exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}

// IsDir reports whether path exists and is a folder.
func (s *Store) IsDir(p string) bool {
	info, err := s.fs.Stat(p)
	return err == nil && info.IsDir()
}

// ListFiles returns the names of regular files directly under dir.
func (s *Store) ListFiles(dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// EnsureDir creates the folder at path if it does not already exist.
func (s *Store) EnsureDir(p string) error {
	if p == "" || s.Exists(p) {
		return nil
	}
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", p, err)
	}
	return nil
}

// ReadBinary returns the raw content of the file at path.
func (s *Store) ReadBinary(p string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// WriteBinary writes bytes at path, creating parent folders as needed.
// Existing content is replaced; image extraction relies on this for
// byte-identical re-runs.
func (s *Store) WriteBinary(p string, data []byte) error {
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Create writes text at path, failing with ErrExists when the path already
// holds a file. The existence check and the write hold the path lock, so at
// most one concurrent Create per path can succeed.
func (s *Store) Create(p, text string) error {
	lock := s.pathLock(p)
	lock.Lock()
	defer lock.Unlock()

	if s.Exists(p) {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, p, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	return nil
}

// Modify replaces the content of an existing file at path.
func (s *Store) Modify(p, text string) error {
	lock := s.pathLock(p)
	lock.Lock()
	defer lock.Unlock()

	if !s.Exists(p) {
		return fmt.Errorf("%w: %s", ErrNotExists, p)
	}
	if err := afero.WriteFile(s.fs, p, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to modify %s: %w", p, err)
	}
	return nil
}

// Read returns the text content of the file at path.
func (s *Store) Read(p string) (string, error) {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotExists, p)
	}
	return string(data), nil
}
