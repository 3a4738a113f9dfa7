// Package memory provides an in-memory record store, used by tests and as
// the development default.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postpress/postpress/pkg/postpress"
)

// Repository implements postpress.Repository using in-memory storage
type Repository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*postpress.Post
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts: make(map[uuid.UUID]*postpress.Post),
	}
}

func (r *Repository) CreatePost(ctx context.Context, fields postpress.PostFields) (*postpress.Post, error) {
	if fields.Heading == nil || fields.Description == nil {
		return nil, fmt.Errorf("heading and description are required")
	}
	if err := checkConstraints(*fields.Heading, *fields.Description); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	post := &postpress.Post{
		ID:          uuid.New(),
		Heading:     *fields.Heading,
		Description: *fields.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if fields.Image != nil {
		post.Image = *fields.Image
	}

	r.posts[post.ID] = post

	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*postpress.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, postpress.ErrPostNotFound
	}

	// Return a copy to prevent external modifications
	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) UpdatePost(ctx context.Context, id uuid.UUID, fields postpress.PostFields) (*postpress.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, postpress.ErrPostNotFound
	}

	heading := post.Heading
	description := post.Description
	if fields.Heading != nil {
		heading = *fields.Heading
	}
	if fields.Description != nil {
		description = *fields.Description
	}
	if err := checkConstraints(heading, description); err != nil {
		return nil, err
	}

	post.Heading = heading
	post.Description = description
	if fields.Image != nil {
		post.Image = *fields.Image
	}
	post.UpdatedAt = time.Now().UTC()

	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return postpress.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filter postpress.PostFilter) ([]*postpress.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*postpress.Post
	for _, post := range r.posts {
		if search != "" &&
			!strings.Contains(strings.ToLower(post.Heading), search) &&
			!strings.Contains(strings.ToLower(post.Description), search) {
			continue
		}
		postCopy := *post
		matched = append(matched, &postCopy)
	}

	sortPosts(matched, filter.SortBy)

	total := len(matched)
	if filter.Offset >= total {
		return []*postpress.Post{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func sortPosts(posts []*postpress.Post, sortBy string) {
	if sortBy == "" {
		sortBy = postpress.DefaultSortBy
	}
	desc := strings.HasPrefix(sortBy, "-")
	field := strings.TrimPrefix(sortBy, "-")

	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "heading":
			return a.Heading < b.Heading
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// checkConstraints mirrors the storage-level bounds the postgres schema
// enforces with CHECK constraints.
func checkConstraints(heading, description string) error {
	if n := len([]rune(heading)); n < postpress.HeadingMinLen || n > postpress.HeadingMaxLen {
		return fmt.Errorf("heading length %d violates storage constraint", n)
	}
	if n := len([]rune(description)); n < postpress.DescriptionMinLen {
		return fmt.Errorf("description length %d violates storage constraint", n)
	}
	return nil
}
