package middleware

import (
	"net/http"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/auth"
	"github.com/inkwell-app/backend/internal/web"
)

// RequireAuth validates the session cookie and injects the verified identity
// claims into the request context.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				web.Error(w, apierr.Auth("Unauthorized"))
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				web.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
