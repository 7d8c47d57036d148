package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists images onto the local filesystem. It is intended for
// development and test environments where an object storage service is not
// available.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Exists reports whether the key already holds a file under the root.
func (s *FileStore) Exists(ctx context.Context, key string) bool {
	if s == nil || ctx.Err() != nil {
		return false
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	return err == nil && !info.IsDir()
}

// Write persists the provided bytes at the given relative key, creating
// parent directories as needed and overwriting existing content. Keys are
// cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte, _ Metadata) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}
	return nil
}

// PublicURL returns a local:// URI pointing at the stored file.
func (s *FileStore) PublicURL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return "local://" + filepath.ToSlash(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ Store = (*FileStore)(nil)
