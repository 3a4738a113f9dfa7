package postpress

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrPostNotFound indicates the identifier has no live post record
	ErrPostNotFound = errors.New("post not found")

	// ErrUnauthenticated indicates a missing or invalid credential
	ErrUnauthenticated = errors.New("authentication required")

	// ErrRateLimited indicates the caller exceeded an admission budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnsupportedMedia indicates a blob failed the image type or size constraints
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUploadFailed indicates an image upload operation failed
	ErrUploadFailed = errors.New("image upload failed")
)

// PostError represents an error related to a post operation
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// StorageError represents an error from a record or blob store
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError maps each offending field to an ordered list of
// human-readable violation messages. It is only produced for malformed
// input, never for business-logic conditions such as a missing record.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input in %d field(s)", len(e.Fields))
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
