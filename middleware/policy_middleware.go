package middleware

import (
	"net/http"

	"github.com/upb/gitstats/backend/internal/policy"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// PolicyEvaluator decides the visibility of a request
type PolicyEvaluator interface {
	Evaluate(method, path string) policy.Decision
}

// PolicyMiddleware enforces the route visibility table
type PolicyMiddleware struct {
	evaluator PolicyEvaluator
	logger    *zap.Logger
}

// NewPolicyMiddleware creates a new PolicyMiddleware
func NewPolicyMiddleware(evaluator PolicyEvaluator, logger *zap.Logger) *PolicyMiddleware {
	return &PolicyMiddleware{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Authorize rejects anonymous requests to routes that require
// authentication. It must run after Authenticate.
func (m *PolicyMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		decision := m.evaluator.Evaluate(r.Method, r.URL.Path)
		if !decision.RequiresAuthentication() || IsAuthenticated(ctx) {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("anonymous request to protected route",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("rule", decision.Rule))

		_ = utils.WriteUnauthorized(w, "Authentication required")
	})
}
