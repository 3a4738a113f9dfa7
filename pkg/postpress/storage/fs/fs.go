// Package fs stores image blobs on the local filesystem. Blob URLs are
// built from a public base URL that must be served from the base
// directory, see the static mount in cmd/server.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/postpress/postpress/pkg/postpress"
)

// Config options for the filesystem store
type Config struct {
	BaseDir       string // base directory for stored blobs
	PublicBaseURL string // URL prefix under which BaseDir is served
}

// Store is a filesystem implementation of the postpress.BlobStore interface
type Store struct {
	baseDir       string
	publicBaseURL string
}

// New creates a filesystem store rooted at config.BaseDir, creating the
// directory if it does not exist.
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.PublicBaseURL == "" {
		return nil, errors.New("public base URL is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:       config.BaseDir,
		publicBaseURL: strings.TrimSuffix(config.PublicBaseURL, "/"),
	}, nil
}

// Upload writes the blob under the object key and returns its public URL.
func (s *Store) Upload(ctx context.Context, reader io.Reader, params postpress.UploadParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	filePath := filepath.Join(s.baseDir, filepath.FromSlash(params.ObjectKey))
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return s.publicBaseURL + "/" + params.ObjectKey, nil
}

// Delete removes the blob addressed by blobURL. A blob that is already
// gone is not an error.
func (s *Store) Delete(ctx context.Context, blobURL string) error {
	key, ok := strings.CutPrefix(blobURL, s.publicBaseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("blob url %q does not belong to this store", blobURL)
	}

	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
