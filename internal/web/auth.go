package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/wkoster/smhconnect/internal/auth"
)

// bearerOnly admits requests that carry a valid bearer token in the
// Authorization header. The verified claims are attached to the request
// context for downstream handlers.
func (s *Server) bearerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			s.writeError(w, http.StatusUnauthorized, errorBody{Message: "missing bearer token"})
			return
		}

		claims, err := s.deps.Tokens.Verify(raw)
		if err != nil {
			// Expired tokens are reported distinctly so clients can ask
			// their user to log in again.
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "expired token, please log in again"
			}

			s.writeError(w, http.StatusUnauthorized, errorBody{Message: msg})
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

type ctxKey string

const claimsKey ctxKey = "smhconnectClaims"

func ContextWithClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	if !ok {
		return auth.Claims{}, false
	}

	return claims, true
}
