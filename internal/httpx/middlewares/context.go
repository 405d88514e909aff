package middlewares

import "context"

// contextKey is an unexported type for context keys in this package.
// A custom type prevents collisions with keys from other packages that
// might use the same underlying string value.
type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "auth-token"
)

// Identity is the caller as resolved by the auth service.
type Identity struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == "admin" }

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// TokenFromContext returns the caller's raw bearer token. This is the
// capability token the orchestrator threads through every gateway call.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithIdentity stores an identity and token on the context. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, tokenKey, token)
}
