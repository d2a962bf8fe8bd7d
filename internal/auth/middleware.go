package auth

import (
	"context"
	"net/http"
)

// Cookie names shared between the handlers (which set them) and the
// middleware (which reads the access token back).
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// contextKey is an unexported type for context keys in this package, so only
// this package can read or write the claims value in a request context.
type contextKey string

const claimsKey contextKey = "authClaims"

// RequireAuth enforces authentication on protected routes.
//
// It reads the access token from the HttpOnly cookie, verifies it, and
// stores the decoded claims in the request context. A missing, expired, or
// tampered token ends the chain with 401 — the body never reveals which.
func RequireAuth(codec *Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := codec.Verify(cookie.Value)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized sends the standard JSON error shape with a constant
// body: missing, expired, and tampered tokens are indistinguishable.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"unauthorized"}` + "\n"))
}

// ClaimsFromContext returns the verified claims stored by RequireAuth.
// The second return is false on routes the middleware did not run on.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
