package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// artifactDir is the fixed subdirectory under the media root where
// extracted images live
const artifactDir = "email_images"

// Store persists image artifacts under a media root on the local
// filesystem. Names are generated to be globally unique, so writes never
// collide and need no locking.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given media directory
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the filesystem path of a named artifact
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, artifactDir, name)
}

// Write persists artifact bytes, creating intermediate directories as needed
func (s *Store) Write(name string, data []byte) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStorage, filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, name, err)
	}
	return nil
}

// Read returns the bytes of a previously written artifact
func (s *Store) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, name, err)
	}
	return data, nil
}

// Remove deletes a named artifact. A file that is already absent is a no-op.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrStorage, name, err)
	}
	return nil
}
