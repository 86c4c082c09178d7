package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is raised
// again so an aborted proxied body still drops the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			slog.Error("panic recovered", "path", r.URL.Path, "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
			writeFailure(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
		}()

		next.ServeHTTP(w, r)
	})
}
