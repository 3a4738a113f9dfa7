package postpress

import (
	"time"

	"github.com/google/uuid"
)

// Post is the single domain entity: an article with a heading, a
// description and an optional remotely hosted image.
type Post struct {
	ID          uuid.UUID `json:"id"`
	Heading     string    `json:"heading"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Field bounds for persisted posts. Enforced by the validation layer and,
// redundantly, by the record stores.
const (
	HeadingMinLen     = 3
	HeadingMaxLen     = 200
	DescriptionMinLen = 10
)

// Listing bounds.
const (
	DefaultPage   = 1
	DefaultLimit  = 10
	MaxLimit      = 100
	MaxSearchLen  = 100
	DefaultSortBy = "-created_at"
)

// PostFields carries the writable fields of a post. A nil field is left
// untouched on update; Create requires Heading and Description to be set.
type PostFields struct {
	Heading     *string
	Description *string
	Image       *string
}

// PostFilter describes a listing query against the record store.
// Search is matched as a case-insensitive substring over heading OR
// description; empty matches all. SortBy is a field name with an optional
// leading '-' for descending order.
type PostFilter struct {
	Search string
	SortBy string
	Limit  int
	Offset int
}

// Pagination is the metadata block returned alongside a listing page.
type Pagination struct {
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	TotalPosts  int  `json:"totalPosts"`
	Limit       int  `json:"limit"`
	HasMore     bool `json:"hasMore"`
}

// PostPage is a single page of listing results.
type PostPage struct {
	Posts      []*Post    `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// Image upload constraints.
const MaxImageBytes = 5 << 20 // 5MB

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedImageExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Transform describes the bounding transform the asset store applies to an
// uploaded image. The store negotiates quality and output format itself;
// these are directives, not guarantees.
type Transform struct {
	MaxWidth  int
	MaxHeight int
	Quality   string
	Format    string
}

// DefaultTransform bounds images to a social-card friendly size.
func DefaultTransform() Transform {
	return Transform{MaxWidth: 1200, MaxHeight: 630, Quality: "auto", Format: "auto"}
}

// AdmissionClass partitions rate budgets by operation kind. Each operation
// consumes budget from exactly one class.
type AdmissionClass string

const (
	ClassGeneral        AdmissionClass = "general"
	ClassAuthentication AdmissionClass = "authentication"
	ClassUpload         AdmissionClass = "upload"
)
