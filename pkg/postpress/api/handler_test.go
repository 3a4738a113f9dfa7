package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpress/postpress/pkg/postpress"
	"github.com/postpress/postpress/pkg/postpress/api"
	"github.com/postpress/postpress/pkg/postpress/auth"
	"github.com/postpress/postpress/pkg/postpress/ratelimit"
	memoryrepo "github.com/postpress/postpress/pkg/postpress/repo/memory"
	memorystorage "github.com/postpress/postpress/pkg/postpress/storage/memory"
)

type testServer struct {
	handler http.Handler
	gate    *auth.Gate
	repo    *memoryrepo.Repository
	store   *memorystorage.Store
}

func newTestServer(t *testing.T, options ...postpress.Option) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memoryrepo.New()
	store := memorystorage.New()

	opts := append([]postpress.Option{
		postpress.WithRepository(repo),
		postpress.WithBlobStore(store),
		postpress.WithLogger(logger),
	}, options...)
	service, err := postpress.New(opts...)
	require.NoError(t, err)

	gate := auth.New("test-secret")
	return &testServer{
		handler: api.NewRouter(service, gate, logger),
		gate:    gate,
		repo:    repo,
		store:   store,
	}
}

func (ts *testServer) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	token, err := ts.gate.MintToken("author-1")
	require.NoError(t, err)
	return token
}

func (ts *testServer) seedPost(t *testing.T, heading, description string) *postpress.Post {
	t.Helper()
	h, d := heading, description
	post, err := ts.repo.CreatePost(context.Background(), postpress.PostFields{Heading: &h, Description: &d})
	require.NoError(t, err)
	return post
}

// postForm builds a multipart body with the given text fields and an
// optional inline PNG part named "image".
func postForm(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="cover.png"`)
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake-image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListPostsEnvelope(t *testing.T) {
	ts := newTestServer(t)
	for i := 1; i <= 12; i++ {
		ts.seedPost(t, fmt.Sprintf("Post %02d", i), "a long enough description")
	}

	rec := ts.do(t, http.MethodGet, "/posts?page=2&limit=10", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["posts"], 2)

	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, pagination["totalPages"])
	assert.EqualValues(t, 2, pagination["currentPage"])
	assert.EqualValues(t, 12, pagination["totalPosts"])
	assert.EqualValues(t, 10, pagination["limit"])
	assert.Equal(t, false, pagination["hasMore"])
}

func TestListPostsEmptyPageIsAnArray(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/posts", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"posts":[]`)
}

func TestListPostsRejectsBadQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/posts?limit=500", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "validation failed", body["message"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "limit")
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	form, contentType := postForm(t, map[string]string{
		"heading":     "  A fresh heading  ",
		"description": "a long enough description",
	}, true)

	rec := ts.do(t, http.MethodPost, "/posts", ts.token(t), form, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "post created", body["message"])

	post, ok := body["post"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A fresh heading", post["heading"])
	assert.NotEmpty(t, post["id"])
	assert.NotEmpty(t, post["image"])
	assert.True(t, ts.store.Has(post["image"].(string)))
}

func TestCreatePostRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	form, contentType := postForm(t, map[string]string{
		"heading":     "A fresh heading",
		"description": "a long enough description",
	}, false)

	rec := ts.do(t, http.MethodPost, "/posts", "", form, contentType)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", decodeBody(t, rec)["message"])
}

func TestCreatePostRejectsForgedToken(t *testing.T) {
	ts := newTestServer(t)
	forged, err := auth.New("other-secret").MintToken("intruder")
	require.NoError(t, err)

	form, contentType := postForm(t, map[string]string{
		"heading":     "A fresh heading",
		"description": "a long enough description",
	}, false)

	rec := ts.do(t, http.MethodPost, "/posts", forged, form, contentType)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePostValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	form, contentType := postForm(t, map[string]string{
		"heading":     "ab",
		"description": "too short",
	}, false)

	rec := ts.do(t, http.MethodPost, "/posts", ts.token(t), form, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "validation failed", body["message"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "heading")
	assert.Contains(t, errs, "description")
}

func TestCreatePostRejectsNonMultipartBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/posts", ts.token(t),
		strings.NewReader(`{"heading":"A fresh heading"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPost(t *testing.T) {
	ts := newTestServer(t)
	post := ts.seedPost(t, "A heading", "a long enough description")

	rec := ts.do(t, http.MethodGet, "/posts/"+post.ID.String(), "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	got, ok := body["post"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, post.ID.String(), got["id"])
	assert.Equal(t, "A heading", got["heading"])
}

func TestGetPostNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/posts/"+uuid.NewString(), "", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "post not found", decodeBody(t, rec)["message"])
}

func TestGetPostMalformedID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/posts/not-a-uuid", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePostPartial(t *testing.T) {
	ts := newTestServer(t)
	post := ts.seedPost(t, "A heading", "a long enough description")

	form, contentType := postForm(t, map[string]string{
		"description": "a replacement description",
	}, false)

	rec := ts.do(t, http.MethodPut, "/posts/"+post.ID.String(), ts.token(t), form, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "post updated", body["message"])
	got, ok := body["post"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A heading", got["heading"])
	assert.Equal(t, "a replacement description", got["description"])
}

func TestUpdatePostRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	post := ts.seedPost(t, "A heading", "a long enough description")

	form, contentType := postForm(t, map[string]string{"heading": "New heading"}, false)
	rec := ts.do(t, http.MethodPut, "/posts/"+post.ID.String(), "", form, contentType)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	post := ts.seedPost(t, "A heading", "a long enough description")
	token := ts.token(t)

	rec := ts.do(t, http.MethodDelete, "/posts/"+post.ID.String(), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "post deleted", decodeBody(t, rec)["message"])

	rec = ts.do(t, http.MethodGet, "/posts/"+post.ID.String(), "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/posts/"+post.ID.String(), token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitedRequest(t *testing.T) {
	limiter := ratelimit.New(map[postpress.AdmissionClass]ratelimit.Budget{
		postpress.ClassGeneral: {Requests: 2, Window: time.Minute},
	})
	defer limiter.Close()
	ts := newTestServer(t, postpress.WithAdmitter(limiter))

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/posts", "", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/posts", "", nil, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests, please try again later", decodeBody(t, rec)["message"])
}
