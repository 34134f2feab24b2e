package common

import (
	"context"
)

// UserContext identifies the caller of a request. It is populated by the HTTP
// middleware from a verified bearer token or, in development, the X-User-ID header.
type UserContext struct {
	UserID      string
	Email       string
	DisplayName string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the caller's user ID, or "" for anonymous requests.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.UserID
	}
	return ""
}
