package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the listed browser origins to call the API with credentials.
// A single "*" entry allows any origin but then drops credentials, which
// browsers refuse to combine with a wildcard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	for _, o := range allowedOrigins {
		if o == "*" {
			opts.AllowedOrigins = []string{"*"}
			opts.AllowCredentials = false
			break
		}
	}

	return cors.Handler(opts)
}
