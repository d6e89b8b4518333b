// Package requesttime pins one "now" per HTTP request, so audit events and
// record timestamps written by the same request agree.
package requesttime

import (
	"net/http"
	"time"

	"namespaces/pkg/requestcontext"
)

// Clock supplies the request time.
type Clock func() time.Time

// Middleware pins the wall clock.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock pins clock's reading, in UTC at second precision to match the
// ledger's unix-second timestamps.
func WithClock(clock Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := clock().UTC().Truncate(time.Second)
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), now)))
		})
	}
}
