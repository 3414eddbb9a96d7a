package middleware

import (
	"net/http"

	"engram/pkg/auth"

	"go.uber.org/zap"
)

// RateLimitWrites enforces a per-user limit on mutating endpoints. It
// runs after authentication; unauthenticated requests pass through
// untouched because the auth middleware already rejects them. Limiter
// errors fail open: losing rate limiting is better than losing writes.
func RateLimitWrites(limiter auth.RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), "write:"+userCtx.UserID)
			if err != nil {
				logger.Warn("Write rate limiter unavailable, allowing request",
					zap.String("userID", userCtx.UserID),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Warn("Write rate limit exceeded",
					zap.String("userID", userCtx.UserID),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "write rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
