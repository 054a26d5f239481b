package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/botforge/botforge/internal/request"
	"github.com/botforge/botforge/internal/services/oidc"
)

// Auth creates authentication middleware that validates bearer JWT tokens
// against the configured JWKS endpoint and stores the resulting user in the
// request context.
func Auth(verifier *oidc.Verifier, jwksURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, parts[1], jwksURL)
			if err != nil {
				log.Printf("Token verification failed: %v (jwks_url: %s)", err, jwksURL)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = request.WithUser(ctx, claims.ToUser())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
