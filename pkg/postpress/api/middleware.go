package api

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/postpress/postpress/pkg/postpress"
	"github.com/postpress/postpress/pkg/postpress/auth"
)

// ClientAddress stores the caller's network address in the request
// context as the rate admission key. Run after middleware.RealIP so
// proxied requests are keyed by the originating address.
func ClientAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(postpress.WithClientAddress(r.Context(), host)))
	})
}

// RequestLogger logs one line per request with status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// NewRouter assembles the HTTP surface: common middleware, the
// authorization gate and the posts routes.
func NewRouter(service postpress.Service, gate *auth.Gate, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(ClientAddress)
	r.Use(gate.Verifier())
	r.Use(gate.Populate)

	r.Mount("/posts", NewPostsHandler(service, logger).Routes())

	return r
}
