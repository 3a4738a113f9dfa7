package postpress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type service struct {
	repository Repository
	blobStore  BlobStore
	admitter   Admitter
	logger     *slog.Logger
}

func (s *service) ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error) {
	if err := s.admit(ctx, ClassGeneral); err != nil {
		return nil, err
	}

	query, err := ValidateListRequest(req)
	if err != nil {
		return nil, err
	}

	posts, total, err := s.repository.ListPosts(ctx, PostFilter{
		Search: query.Search,
		SortBy: query.SortBy,
		Limit:  query.Limit,
		Offset: query.Offset(),
	})
	if err != nil {
		return nil, &StorageError{Backend: "records", Op: "list", Err: err}
	}

	totalPages := (total + query.Limit - 1) / query.Limit
	return &PostPage{
		Posts: posts,
		Pagination: Pagination{
			TotalPages:  totalPages,
			CurrentPage: query.Page,
			TotalPosts:  total,
			Limit:       query.Limit,
			HasMore:     query.Page*query.Limit < total,
		},
	}, nil
}

func (s *service) GetPost(ctx context.Context, rawID string) (*Post, error) {
	if err := s.admit(ctx, ClassGeneral); err != nil {
		return nil, err
	}

	id, err := ValidatePostID(rawID)
	if err != nil {
		return nil, err
	}

	post, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return nil, &PostError{PostID: id, Op: "get", Err: err}
	}
	return post, nil
}

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := s.admit(ctx, mutationClass(req.Image)); err != nil {
		return nil, err
	}
	if _, ok := IdentityFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}

	heading, description, err := ValidateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	fields := PostFields{Heading: &heading, Description: &description}

	// The image is uploaded before any record exists, so a failed upload
	// aborts with no partial state.
	if req.Image != nil {
		url, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		fields.Image = &url
	}

	post, err := s.repository.CreatePost(ctx, fields)
	if err != nil {
		// The record never materialized; the just-uploaded blob is now
		// unreferenced and gets the same best-effort cleanup as a
		// replaced image.
		if fields.Image != nil {
			s.cleanupImage(ctx, *fields.Image)
		}
		return nil, &StorageError{Backend: "records", Op: "create", Err: err}
	}

	return post, nil
}

func (s *service) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	if err := s.admit(ctx, mutationClass(req.Image)); err != nil {
		return nil, err
	}
	if _, ok := IdentityFromContext(ctx); !ok {
		return nil, ErrUnauthenticated
	}

	id, fields, err := ValidateUpdateRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return nil, &PostError{PostID: id, Op: "update", Err: err}
	}

	// Upload the replacement image before committing the record update.
	// A storage failure after this point never leaves the record pointing
	// at a deleted asset; at worst the new blob is orphaned.
	if req.Image != nil {
		url, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		fields.Image = &url
	}

	updated, err := s.repository.UpdatePost(ctx, id, fields)
	if err != nil {
		if fields.Image != nil {
			s.cleanupImage(ctx, *fields.Image)
		}
		return nil, &PostError{PostID: id, Op: "update", Err: err}
	}

	// Only after the record update durably succeeded may the replaced
	// image be removed.
	if fields.Image != nil && existing.Image != "" && existing.Image != *fields.Image {
		s.cleanupImage(ctx, existing.Image)
	}

	return updated, nil
}

func (s *service) DeletePost(ctx context.Context, rawID string) error {
	if err := s.admit(ctx, ClassGeneral); err != nil {
		return err
	}
	if _, ok := IdentityFromContext(ctx); !ok {
		return ErrUnauthenticated
	}

	id, err := ValidatePostID(rawID)
	if err != nil {
		return err
	}

	existing, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}

	if err := s.repository.DeletePost(ctx, id); err != nil {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}

	// Record deletion comes first: a failure between the two leaves an
	// orphaned but harmless blob, never a record referencing a deleted one.
	if existing.Image != "" {
		s.cleanupImage(ctx, existing.Image)
	}

	return nil
}

// admit charges the operation against the caller's budget for the given
// class. Operations with no configured admitter are always admitted.
func (s *service) admit(ctx context.Context, class AdmissionClass) error {
	if s.admitter == nil {
		return nil
	}
	return s.admitter.Admit(ClientAddressFromContext(ctx), class)
}

func mutationClass(image *ImageUpload) AdmissionClass {
	if image != nil {
		return ClassUpload
	}
	return ClassGeneral
}

func (s *service) uploadImage(ctx context.Context, img *ImageUpload) (string, error) {
	if s.blobStore == nil {
		return "", fmt.Errorf("%w: no blob store configured", ErrUploadFailed)
	}

	params := UploadParams{
		ObjectKey: generateObjectKey(img.Filename),
		MimeType:  img.ContentType,
		Size:      img.Size,
		Transform: DefaultTransform(),
	}

	url, err := s.blobStore.Upload(ctx, img.Data, params)
	if err != nil {
		if errors.Is(err, ErrUnsupportedMedia) {
			return "", err
		}
		return "", &StorageError{Backend: "blobs", Key: params.ObjectKey, Op: "upload", Err: err}
	}
	return url, nil
}

// cleanupImage removes a blob best-effort. Failures are logged and
// swallowed: cleanup must never fail a mutation that already committed.
func (s *service) cleanupImage(ctx context.Context, url string) {
	if s.blobStore == nil {
		return
	}
	if err := s.blobStore.Delete(ctx, url); err != nil {
		s.logger.Error("image cleanup failed", "url", url, "err", err)
	}
}

func generateObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "posts/" + uuid.New().String() + ext
}
