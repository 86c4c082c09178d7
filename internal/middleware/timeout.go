package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context. The handler keeps ownership of the
// response, so a forwarded call that runs out of time fails through the
// forwarder's own error path.
func Deadline(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
