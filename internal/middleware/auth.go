package middleware

import (
	"net/http"
	"strings"

	"github.com/tradecove/tradecove-api/internal/auth"
	"github.com/tradecove/tradecove-api/internal/handler"
)

// Auth validates the identity provider's session token and puts the
// caller's external id on the context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithExternalID(r.Context(), claims.ExternalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
