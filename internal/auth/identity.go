package auth

import "context"

type identityKey struct{}

// WithIdentity attaches the authenticated user id to the context. The value
// is immutable for the remainder of the request.
func WithIdentity(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityFromContext returns the authenticated user id placed on the
// context by the authentication middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	userID, ok := ctx.Value(identityKey{}).(string)
	return userID, ok && userID != ""
}
