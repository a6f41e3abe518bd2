package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated caller
const ContextKeyPrincipal ContextKey = "principal"

// PrincipalFromContext returns the caller placed in the context by RequireAuth.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	return p, ok && p != nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", autherrors.Wrapf(autherrors.ErrMalformedToken, "missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", autherrors.Wrapf(autherrors.ErrMalformedToken, "invalid Authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", autherrors.Wrapf(autherrors.ErrMalformedToken, "empty token")
	}
	return token, nil
}

// RequireAuth is middleware that validates a Bearer access token
// and puts the resolved caller in the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			principal, err := s.auth.Authenticate(r.Context(), token)
			if err != nil {
				// A valid token whose account is gone no longer identifies anyone
				if errors.Is(err, autherrors.ErrUserNotFound) {
					err = autherrors.Wrapf(autherrors.ErrUserNotResolved, "token subject")
				}
				writeServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole is middleware that admits callers holding any of roles. It must run after RequireAuth.
func (s *Server) RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeServiceError(w, r, autherrors.ErrUserNotResolved)
				return
			}
			for _, role := range roles {
				if principal.HasRole(role) {
					next(w, r)
					return
				}
			}
			writeServiceError(w, r, autherrors.Wrapf(autherrors.ErrForbidden, "requires %s", strings.Join(roles, " or ")))
		}
	}
}
