package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mealmasters/api/internal/auth"
	"github.com/mealmasters/api/internal/service"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate verifies the access token and stores its claims in the
// request context. The token is read from the "token" header used by the
// web client, falling back to "Authorization: Bearer".
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := tokenFromRequest(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if t := strings.TrimSpace(r.Header.Get("token")); t != "" {
		return t, true
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// ActorFromContext returns the authenticated caller. Without claims it
// returns the zero Actor, which every service call rejects.
func ActorFromContext(ctx context.Context) service.Actor {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{Role: claims.Role, ID: claims.UserID}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": msg, "code": code})
}
