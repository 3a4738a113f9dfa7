package postpress

import "io"

// Request DTOs

// ImageUpload is an image blob accompanying a create or update request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// ListPostsRequest carries raw listing query parameters. Values arrive as
// strings straight from the query string; the validation layer parses and
// bounds them.
type ListPostsRequest struct {
	Page   string
	Limit  string
	Search string
	Sort   string
}

// CreatePostRequest contains parameters for creating a new post.
type CreatePostRequest struct {
	Heading     string
	Description string
	Image       *ImageUpload
}

// UpdatePostRequest contains parameters for a partial post update. Nil
// fields are left unchanged.
type UpdatePostRequest struct {
	ID          string
	Heading     *string
	Description *string
	Image       *ImageUpload
}
