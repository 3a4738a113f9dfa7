package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpress/postpress/pkg/postpress"
)

func strPtr(s string) *string { return &s }

func createPost(t *testing.T, repo *Repository, heading, description string) *postpress.Post {
	t.Helper()
	post, err := repo.CreatePost(context.Background(), postpress.PostFields{
		Heading:     strPtr(heading),
		Description: strPtr(description),
	})
	require.NoError(t, err)
	return post
}

func TestCreatePostAssignsIdentityAndTimestamps(t *testing.T) {
	repo := New()

	before := time.Now().UTC()
	post := createPost(t, repo, "A heading", "a long enough description")

	assert.NotEqual(t, uuid.Nil, post.ID)
	assert.False(t, post.CreatedAt.Before(before))
	assert.Equal(t, post.CreatedAt, post.UpdatedAt)
}

func TestCreatePostEnforcesStorageConstraints(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, err := repo.CreatePost(ctx, postpress.PostFields{
		Heading:     strPtr("ab"),
		Description: strPtr("a long enough description"),
	})
	assert.Error(t, err)

	_, err = repo.CreatePost(ctx, postpress.PostFields{
		Heading:     strPtr("A heading"),
		Description: strPtr("too short"),
	})
	assert.Error(t, err)

	_, err = repo.CreatePost(ctx, postpress.PostFields{})
	assert.Error(t, err)
}

func TestGetPostReturnsCopies(t *testing.T) {
	repo := New()
	post := createPost(t, repo, "A heading", "a long enough description")

	got, err := repo.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	got.Heading = "mutated"

	again, err := repo.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "A heading", again.Heading)
}

func TestGetPostNotFound(t *testing.T) {
	repo := New()
	_, err := repo.GetPost(context.Background(), uuid.New())
	assert.ErrorIs(t, err, postpress.ErrPostNotFound)
}

func TestUpdatePostPartialFields(t *testing.T) {
	repo := New()
	ctx := context.Background()
	post := createPost(t, repo, "A heading", "a long enough description")

	updated, err := repo.UpdatePost(ctx, post.ID, postpress.PostFields{
		Description: strPtr("a replacement description"),
	})
	require.NoError(t, err)
	assert.Equal(t, "A heading", updated.Heading)
	assert.Equal(t, "a replacement description", updated.Description)
	assert.False(t, updated.UpdatedAt.Before(post.UpdatedAt))

	updated, err = repo.UpdatePost(ctx, post.ID, postpress.PostFields{
		Image: strPtr("https://img.example.com/posts/x.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/posts/x.png", updated.Image)
	assert.Equal(t, "a replacement description", updated.Description)
}

func TestUpdatePostNotFound(t *testing.T) {
	repo := New()
	_, err := repo.UpdatePost(context.Background(), uuid.New(), postpress.PostFields{
		Heading: strPtr("New heading"),
	})
	assert.ErrorIs(t, err, postpress.ErrPostNotFound)
}

func TestDeletePost(t *testing.T) {
	repo := New()
	ctx := context.Background()
	post := createPost(t, repo, "A heading", "a long enough description")

	require.NoError(t, repo.DeletePost(ctx, post.ID))

	_, err := repo.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, postpress.ErrPostNotFound)

	err = repo.DeletePost(ctx, post.ID)
	assert.ErrorIs(t, err, postpress.ErrPostNotFound)
}

func TestListPosts(t *testing.T) {
	repo := New()
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		createPost(t, repo, fmt.Sprintf("Post %02d", i), fmt.Sprintf("description body %02d", i))
	}
	createPost(t, repo, "Hello World", "a friendly greeting entry")

	t.Run("search is a case-insensitive substring over both fields", func(t *testing.T) {
		posts, total, err := repo.ListPosts(ctx, postpress.PostFilter{Search: "hello", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, "Hello World", posts[0].Heading)

		posts, total, err = repo.ListPosts(ctx, postpress.PostFilter{Search: "GREETING", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, posts, 1)

		_, total, err = repo.ListPosts(ctx, postpress.PostFilter{Search: "xyz", Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("total counts matches before pagination", func(t *testing.T) {
		posts, total, err := repo.ListPosts(ctx, postpress.PostFilter{Limit: 5, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 13, total)
		assert.Len(t, posts, 3)
	})

	t.Run("offset past the end yields an empty page", func(t *testing.T) {
		posts, total, err := repo.ListPosts(ctx, postpress.PostFilter{Limit: 5, Offset: 50})
		require.NoError(t, err)
		assert.Equal(t, 13, total)
		assert.Empty(t, posts)
	})

	t.Run("sort by heading ascending", func(t *testing.T) {
		posts, _, err := repo.ListPosts(ctx, postpress.PostFilter{SortBy: "heading", Limit: 3})
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "Hello World", posts[0].Heading)
		assert.Equal(t, "Post 01", posts[1].Heading)
	})

	t.Run("default sort is reverse chronological", func(t *testing.T) {
		posts, _, err := repo.ListPosts(ctx, postpress.PostFilter{Limit: 13})
		require.NoError(t, err)
		require.Len(t, posts, 13)
		for i := 1; i < len(posts); i++ {
			assert.False(t, posts[i-1].CreatedAt.Before(posts[i].CreatedAt))
		}
	})
}
