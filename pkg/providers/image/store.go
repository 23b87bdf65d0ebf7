package image

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageStore persists decoded image bytes and returns the URL they are served at
type ImageStore interface {
	Save(data []byte) (string, error)
}

// FileStore writes images under Dir with random names. URLs are PublicPrefix
// joined with the file name, or the absolute file path when PublicPrefix is empty.
type FileStore struct {
	Dir          string
	PublicPrefix string
}

// NewFileStore creates a FileStore
func NewFileStore(dir, publicPrefix string) *FileStore {
	return &FileStore{Dir: dir, PublicPrefix: publicPrefix}
}

// DefaultFileStore writes under the system temp directory
func DefaultFileStore() *FileStore {
	return NewFileStore(filepath.Join(os.TempDir(), "go-llm-stream-images"), "")
}

// Save writes data to a new file and returns its URL
func (s *FileStore) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	name := uuid.NewString() + extensionFor(data)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	if s.PublicPrefix == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return path, nil
		}
		return abs, nil
	}
	return strings.TrimRight(s.PublicPrefix, "/") + "/" + name, nil
}

func extensionFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}
