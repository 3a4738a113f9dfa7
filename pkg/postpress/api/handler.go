// Package api exposes the post lifecycle service over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/postpress/postpress/pkg/postpress"
)

// multipartLimits bounds multipart request parsing for the mutating routes.
type multipartLimits struct {
	maxMemory int64 // bytes buffered in memory while parsing
	maxBody   int64 // request body cap, image plus form overhead
}

var defaultMultipartLimits = multipartLimits{
	maxMemory: 8 << 20,
	maxBody:   postpress.MaxImageBytes + (1 << 20),
}

// PostsHandler handles HTTP requests for posts
type PostsHandler struct {
	service postpress.Service
	logger  *slog.Logger
	limits  multipartLimits
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(service postpress.Service, logger *slog.Logger) *PostsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{
		service: service,
		logger:  logger,
		limits:  defaultMultipartLimits,
	}
}

// Routes returns the routes for posts
func (h *PostsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPosts)
	r.Post("/", h.CreatePost)
	r.Get("/{id}", h.GetPost)
	r.Put("/{id}", h.UpdatePost)
	r.Delete("/{id}", h.DeletePost)

	return r
}

// listResponse is the response body for a listing page
type listResponse struct {
	Success    bool                 `json:"success"`
	Posts      []*postpress.Post    `json:"posts"`
	Pagination postpress.Pagination `json:"pagination"`
}

// postResponse is the response body for a single post
type postResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Post    *postpress.Post `json:"post"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ListPosts returns a page of posts
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListPosts(r.Context(), postpress.ListPostsRequest{
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	posts := page.Posts
	if posts == nil {
		posts = []*postpress.Post{}
	}
	render.JSON(w, r, listResponse{Success: true, Posts: posts, Pagination: page.Pagination})
}

// GetPost returns a post by ID
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, postResponse{Success: true, Post: post})
}

// CreatePost creates a new post from a multipart form
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	image, cleanup, err := h.parseMultipart(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer cleanup()

	post, err := h.service.CreatePost(r.Context(), postpress.CreatePostRequest{
		Heading:     r.FormValue("heading"),
		Description: r.FormValue("description"),
		Image:       image,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, postResponse{Success: true, Message: "post created", Post: post})
}

// UpdatePost applies a partial update from a multipart form
func (h *PostsHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	image, cleanup, err := h.parseMultipart(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer cleanup()

	post, err := h.service.UpdatePost(r.Context(), postpress.UpdatePostRequest{
		ID:          chi.URLParam(r, "id"),
		Heading:     formValue(r, "heading"),
		Description: formValue(r, "description"),
		Image:       image,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, postResponse{Success: true, Message: "post updated", Post: post})
}

// DeletePost deletes a post by ID
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, messageResponse{Success: true, Message: "post deleted"})
}

// parseMultipart parses the mutating-request form and extracts the
// optional image part. The returned cleanup closes the file handle after
// the service call finishes with the stream.
func (h *PostsHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*postpress.ImageUpload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.maxBody)
	if err := r.ParseMultipartForm(h.limits.maxMemory); err != nil {
		verr := &postpress.ValidationError{Fields: map[string][]string{
			"_": {"request body must be a multipart form"},
		}}
		return nil, noop, verr
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		verr := &postpress.ValidationError{Fields: map[string][]string{
			"image": {"image part is malformed"},
		}}
		return nil, noop, verr
	}

	image := &postpress.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	}
	return image, func() { file.Close() }, nil
}

// formValue distinguishes an absent field from an empty one, preserving
// partial-update semantics.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
		v := vs[0]
		return &v
	}
	return nil
}

func (h *PostsHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *postpress.ValidationError

	switch {
	case errors.As(err, &verr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "validation failed", Errors: verr.Fields})
	case errors.Is(err, postpress.ErrPostNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Message: "post not found"})
	case errors.Is(err, postpress.ErrUnauthenticated):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, errorResponse{Message: "authentication required"})
	case errors.Is(err, postpress.ErrRateLimited):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, errorResponse{Message: "too many requests, please try again later"})
	case errors.Is(err, postpress.ErrUnsupportedMedia):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "image must be jpeg, png, gif or webp and at most 5MB"})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Message: "something went wrong"})
	}
}
