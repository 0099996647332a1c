package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/web"
)

// WindowCounter counts hits per key within an expiring window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit caps requests per client address within a sliding one-minute
// window. Exceeding the cap fails with 429 before any handler runs. scope
// keeps independent thresholds from sharing counters.
func RateLimit(counter WindowCounter, scope string, limit int) func(http.Handler) http.Handler {
	const window = time.Minute

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + scope + ":" + clientAddr(r)

			count, err := counter.IncrWindow(r.Context(), key, window)
			if err != nil {
				// Counter outage must not take the API down with it.
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				web.Error(w, apierr.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr returns the client address for rate-limit keying. chi's RealIP
// middleware has already folded proxy headers into RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
