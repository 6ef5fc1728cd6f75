package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/welth/internal/adapter/http/respond"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/infrastructure/ratelimit"
)

// Allower decides whether a caller may proceed.
type Allower interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimitObserver records rejected requests.
type RateLimitObserver interface {
	ObserveRateLimited(route string)
}

// RateLimit enforces a per-owner quota. Anonymous callers are keyed by IP.
func RateLimit(limiter Allower, observer RateLimitObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := OwnerFromContext(r.Context())
			if key == "" {
				key = "ip:" + getIP(r)
			}

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			if !decision.Allowed {
				if observer != nil {
					observer.ObserveRateLimited(routeLabel(r))
				}
				respond.Error(w, r, &domain.RateLimitError{
					Remaining: decision.Remaining,
					Reset:     decision.Reset,
					Blocked:   decision.Blocked,
				})
				return
			}

			respond.SetRateLimitHeaders(w, decision.Remaining, decision.Reset.Seconds())
			next.ServeHTTP(w, r)
		})
	}
}

// getIP extracts the client IP from the request
func getIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP header
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	return r.Method + " " + r.URL.Path
}
