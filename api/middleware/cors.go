package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS applies the allowed-origin policy. Credentials are only allowed for an
// explicit origin list; a "*" entry opens the API to any origin without them.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
