package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS lets browser apps on other origins call the portal. The session
// travels in cookies, so credentials are only allowed for an explicit origin
// list; a wildcard gets anonymous access.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{"Content-Length", "Retry-After", requestIDHeader},
		MaxAge:           3600,
		AllowCredentials: !slices.Contains(origins, "*"),
	})

	return handler.Handler
}
