package postpress

import "context"

// Identity is an authenticated caller as established by the authorization
// gate. No role distinctions are carried: any authenticated identity may
// mutate any post.
type Identity struct {
	Subject string
}

type contextKey string

const (
	identityKey      contextKey = "identity"
	clientAddressKey contextKey = "client_address"
)

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext reports the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithClientAddress returns a context carrying the caller's network
// address, used as the rate admission key.
func WithClientAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddressKey, addr)
}

// ClientAddressFromContext reports the caller's network address, if set.
func ClientAddressFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddressKey).(string)
	return addr
}
