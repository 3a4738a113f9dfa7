package postpress

import (
	"context"
	"errors"
	"log/slog"
)

// Service coordinates the post lifecycle: every operation sequences rate
// admission, authorization, validation, blob handling and record mutation
// in that order.
type Service interface {
	// ListPosts returns a page of posts plus pagination metadata.
	// No authorization required.
	ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error)

	// GetPost returns the post addressed by id. No authorization required.
	GetPost(ctx context.Context, id string) (*Post, error)

	// CreatePost creates a post for an authenticated caller, uploading
	// the attached image (if any) before any record is written.
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// UpdatePost applies a partial update for an authenticated caller.
	// A replaced image's predecessor is removed best-effort, only after
	// the record update has durably succeeded.
	UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error)

	// DeletePost removes the post and then, best-effort, its image.
	DeletePost(ctx context.Context, id string) error
}

// Option configures the service
type Option func(*service)

// WithRepository sets the record store for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the image blob store for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithAdmitter sets the rate admission control for the service. Without
// one, every operation is admitted.
func WithAdmitter(admitter Admitter) Option {
	return func(s *service) {
		s.admitter = admitter
	}
}

// WithLogger sets the logger used for non-critical failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new post lifecycle service with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger: slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, errors.New("repository is required")
	}

	return s, nil
}
