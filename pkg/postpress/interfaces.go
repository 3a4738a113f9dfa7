package postpress

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Repository defines the interface for post record persistence. It is the
// only component with durable side effects on post records. Implementations
// assign identifiers and timestamps on create and bump UpdatedAt on every
// successful mutation.
type Repository interface {
	CreatePost(ctx context.Context, fields PostFields) (*Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, fields PostFields) (*Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListPosts(ctx context.Context, filter PostFilter) ([]*Post, int, error)
}

// BlobStore defines the interface for the remote image store.
type BlobStore interface {
	// Upload stores the blob and returns a stable URL addressing it.
	// Implementations reject blobs violating the image constraints with
	// ErrUnsupportedMedia.
	Upload(ctx context.Context, reader io.Reader, params UploadParams) (string, error)

	// Delete removes the blob addressed by url, deriving the internal
	// object key from the URL path. Deleting an absent blob is a no-op.
	Delete(ctx context.Context, url string) error
}

// UploadParams contains parameters for uploading an image blob.
type UploadParams struct {
	ObjectKey string
	MimeType  string
	Size      int64
	Transform Transform
}

// Validate checks the upload against the image constraints shared by all
// blob store implementations.
func (p UploadParams) Validate() error {
	if p.Size > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrUnsupportedMedia, p.Size, int64(MaxImageBytes))
	}
	if _, ok := allowedImageTypes[p.MimeType]; ok {
		return nil
	}
	if allowedImageExts[strings.ToLower(filepath.Ext(p.ObjectKey))] {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedMedia, p.MimeType)
}

// Admitter decides whether an operation from a given client address may
// proceed under the named admission class. A nil error admits the
// operation; ErrRateLimited rejects it.
type Admitter interface {
	Admit(client string, class AdmissionClass) error
}
