package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/token"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying identity tokens
type TokenVerifier interface {
	// Verify checks the token at the given instant and returns its principal
	Verify(token string, now time.Time) (*models.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for expiry checks
func (m *AuthMiddleware) WithClock(now func() time.Time) *AuthMiddleware {
	m.now = now
	return m
}

// Authenticate binds the principal of a valid bearer token to the request
// context. It never rejects: requests without a usable token continue
// anonymously and the authorization policy decides what they may reach.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tok := extractBearerToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.verifier.Verify(tok, m.now())
		if err != nil {
			// Only the failure kind is logged, never the token
			m.logger.Debug("bearer token rejected",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("reason", token.Reason(err)))
			next.ServeHTTP(w, r)
			return
		}

		if IsAuthenticated(ctx) {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("login", principal.Login))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Check if it starts with "Bearer "
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
