package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// identityKey is the context key for the authenticated user's email.
const identityKey = contextKey("authIdentity")

// Middleware returns a handler wrapper that requires a valid bearer token on
// every request. Missing, malformed, and expired tokens all produce the same
// 401 so callers learn nothing about why authentication failed.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, "Bearer ", 2)
				if len(parts) == 2 {
					tokenStr = strings.TrimSpace(parts[1])
				}
			}

			if tokenStr == "" {
				unauthorized(w)
				return
			}

			email, err := issuer.Verify(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated email placed in the request
// context by Middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey).(string)
	return email, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "Invalid authentication credentials", http.StatusUnauthorized)
}
