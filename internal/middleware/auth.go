package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/docclinic/internal/ctxkeys"
	"github.com/templui/docclinic/internal/render"
	"github.com/templui/docclinic/internal/service"
)

// Authenticator verifies a bearer session token.
type Authenticator interface {
	Authenticate(token string) (*service.SessionClaims, error)
}

// RequireSession rejects requests without a valid bearer token and adds the
// session claims to the context otherwise.
func RequireSession(auth Authenticator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Authenticate(BearerToken(r))
			if err != nil {
				slog.Debug("session rejected", "path", r.URL.Path, "error", err)
				render.Error(w, http.StatusUnauthorized, sessionErrorMessage(err))
				return
			}

			ctx := ctxkeys.WithSession(r.Context(), claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// Anything else yields "".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func sessionErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return "No token provided"
	case errors.Is(err, service.ErrCredentialExpired):
		return "Token expired"
	default:
		return "Invalid token"
	}
}
