package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/api"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

type contextKey string

const ClientKey contextKey = "client"

// TokenValidator resolves a bearer token to a client name.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

var ErrInvalidToken = errors.New("invalid token")

// StaticToken accepts exactly one shared token.
type StaticToken string

func (s StaticToken) ValidateToken(_ context.Context, token string) (string, error) {
	if s == "" || subtle.ConstantTimeCompare([]byte(s), []byte(token)) != 1 {
		return "", ErrInvalidToken
	}
	return "token", nil
}

// BearerAuth rejects requests without a valid bearer token. The resolved client
// name is stored on the context and tagged on the request's Sentry scope. A nil
// validator disables authentication.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			client, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			telemetry.SetTag(r.Context(), "client", client)
			ctx := context.WithValue(r.Context(), ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClient returns the client name set by BearerAuth.
func GetClient(ctx context.Context) string {
	client, _ := ctx.Value(ClientKey).(string)
	return client
}
