package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore persists uploaded image payloads and serves them back by URL.
// Implementations must return a URL that storefront clients can fetch
// directly.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// LocalStore writes images into a static-served directory on local disk.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the uploads directory if needed and returns a store
// serving files under baseURL.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the payload to disk under the given name. A partially written
// file is removed on failure.
func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close image file: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Dir returns the directory the store writes into, for static serving.
func (s *LocalStore) Dir() string {
	return s.dir
}
