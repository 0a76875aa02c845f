// Package covers stores uploaded book cover images on local disk.
package covers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes cover images under a directory, one file per book. Uploading
// a new cover replaces the previous one regardless of extension.
type Store struct {
	dir string
}

// NewStore creates the covers directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the cover image for a book and returns the stored filename.
// The write goes through a temp file in the same directory so a crash never
// leaves a half-written cover behind.
func (s *Store) Save(bookID uint, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty cover image")
	}

	if err := s.Remove(bookID); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("cover_%d%s", bookID, extensionFor(contentType))
	finalPath := filepath.Join(s.dir, filename)

	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", err
	}
	tmpFile.Close()

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	return filename, nil
}

// Remove deletes any stored cover for the book.
func (s *Store) Remove(bookID uint) error {
	pattern := filepath.Join(s.dir, fmt.Sprintf("cover_%d.*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Dir returns the storage directory path.
func (s *Store) Dir() string {
	return s.dir
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
