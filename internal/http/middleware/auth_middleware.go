package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/security"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
	BearerContextKey contextKey = "bearer"
)

// AuthMiddleware resolves the bearer string through validator and stores the
// claims and the opaque string on the request context.
func AuthMiddleware(validator service.AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			claims, err := validator.ValidateAccess(raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenMismatch):
					response.Error(w, r, http.StatusUnauthorized, "TOKEN_MISMATCH", "token is not valid", nil)
				case errors.Is(err, service.ErrUnauthorized):
					response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "token expired or invalid", nil)
				default:
					slog.ErrorContext(r.Context(), "access validation failed", "error", err)
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
				}
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, BearerContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func BearerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(BearerContextKey).(string)
	return v
}
