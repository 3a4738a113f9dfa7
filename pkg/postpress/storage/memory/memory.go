// Package memory provides an in-memory blob store for tests and local
// development.
package memory

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/postpress/postpress/pkg/postpress"
)

// Store is an in-memory implementation of the postpress.BlobStore interface
type Store struct {
	mu        sync.RWMutex
	blobs     map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory blob store
func New() *Store {
	return &Store{
		blobs:     make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

func (s *Store) Upload(ctx context.Context, reader io.Reader, params postpress.UploadParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[params.ObjectKey] = data
	s.mimeTypes[params.ObjectKey] = params.MimeType

	return "memory:///" + params.ObjectKey, nil
}

// Delete removes the blob addressed by blobURL. A missing blob is a no-op.
func (s *Store) Delete(ctx context.Context, blobURL string) error {
	u, err := url.Parse(blobURL)
	if err != nil {
		return err
	}
	key := strings.TrimPrefix(u.Path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	delete(s.mimeTypes, key)
	return nil
}

// Has reports whether a blob addressed by blobURL is currently stored.
func (s *Store) Has(blobURL string) bool {
	u, err := url.Parse(blobURL)
	if err != nil {
		return false
	}
	key := strings.TrimPrefix(u.Path, "/")

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok
}
