package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/ratelimit"
)

// RateLimitOptions configures RateLimit. Stats is optional.
type RateLimitOptions struct {
	Store    *ratelimit.Store
	TrustXFF bool
	Stats    ratelimit.StatsRecorder
}

// RateLimit applies a per-client token bucket. Denied requests get 429
// with Retry-After.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.ClientIP(r, opts.TrustXFF)
			decision := opts.Store.Allow(key)

			if opts.Stats != nil {
				ev := ratelimit.StatsEvent{Key: key, Allowed: decision.Allowed, Route: routePattern(r), At: time.Now()}
				// Recording must not hold up the request.
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := opts.Stats.Record(ctx, ev); err != nil {
						slog.Warn("Failed to record rate limit stats", "error", err)
					}
				}()
			}

			if !decision.Allowed {
				slog.Info("Rate limited", "client", key, "retry_after", decision.RetryAfter)
				response.TooManyRequests(w, decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
