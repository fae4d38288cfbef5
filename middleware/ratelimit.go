package middleware

import (
	"net"
	"net/http"

	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// RateLimitChecker decides whether a client may make another request
type RateLimitChecker interface {
	Allow(key string) bool
}

// RateLimit rejects clients that exceed their request budget with 429.
// Clients are keyed by login when authenticated and by remote IP otherwise.
func RateLimit(limiter RateLimitChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("client", key))
			w.Header().Set("Retry-After", "1")
			_ = utils.WriteTooManyRequests(w, "Rate limit exceeded", nil)
		})
	}
}

func clientKey(r *http.Request) string {
	if p := GetPrincipalFromContext(r.Context()); p != nil {
		return "user:" + p.Login
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
