package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/gitstats/backend/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"
)

// GetRequestIDFromContext retrieves the request ID assigned by chi's
// RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// WithPrincipal binds p to the context. An already bound principal is never
// replaced: the original context is returned unchanged.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	if p == nil || GetPrincipalFromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipalFromContext retrieves the authenticated principal, or nil for
// an anonymous request
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if p, ok := val.(*models.Principal); ok {
			return p
		}
	}
	return nil
}

// IsAuthenticated reports whether a principal is bound to the context
func IsAuthenticated(ctx context.Context) bool {
	return GetPrincipalFromContext(ctx) != nil
}
