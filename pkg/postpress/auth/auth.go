// Package auth is the authorization gate: it verifies caller-presented
// JWT credentials and surfaces the authenticated identity to the post
// lifecycle service via the request context. Token issuance lives outside
// this service; the gate only consumes tokens.
package auth

import (
	"net/http"

	"github.com/go-chi/jwtauth"

	"github.com/postpress/postpress/pkg/postpress"
)

// Gate verifies bearer tokens signed with a shared HMAC secret.
type Gate struct {
	tokenAuth *jwtauth.JWTAuth
}

// New creates a gate for HS256 tokens signed with secret.
func New(secret string) *Gate {
	return &Gate{tokenAuth: jwtauth.New("HS256", []byte(secret), nil)}
}

// Verifier returns middleware that extracts and verifies a token from the
// Authorization header or jwt cookie, seeding the request context for
// Authenticate. Requests without a token pass through unauthenticated.
func (g *Gate) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(g.tokenAuth)
}

// Authenticate yields the verified identity for the request, or
// postpress.ErrUnauthenticated when no valid credential was presented.
func (g *Gate) Authenticate(r *http.Request) (postpress.Identity, error) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return postpress.Identity{}, postpress.ErrUnauthenticated
	}
	subject, _ := claims["sub"].(string)
	return postpress.Identity{Subject: subject}, nil
}

// Populate returns middleware that, when a request carries a valid
// credential, stores the identity in the context. It never rejects:
// operations that require authentication fail in the lifecycle service,
// so read-only routes can share the chain.
func (g *Gate) Populate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := g.Authenticate(r); err == nil {
			r = r.WithContext(postpress.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// MintToken signs a token for the given subject. Used by tests and dev
// tooling; production tokens come from the external issuer sharing the
// secret.
func (g *Gate) MintToken(subject string) (string, error) {
	_, tokenString, err := g.tokenAuth.Encode(map[string]interface{}{"sub": subject})
	return tokenString, err
}
