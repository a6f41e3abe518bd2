package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-session-auth/identity"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// authFlowTTL bounds the time between the provider redirect and its callback.
const authFlowTTL = 10 * time.Minute

func (s *Server) pathProvider(r *http.Request) (users.ProviderKind, error) {
	kind, err := users.ParseProviderKind(r.PathValue("provider"))
	if err != nil {
		return "", err
	}
	if !identity.SupportsProvider(kind) {
		return "", autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "provider %q", kind.Lower())
	}
	return kind, nil
}

// OAuth2LoginHandler starts the authorization code flow with PKCE and redirects to the provider.
func (s *Server) OAuth2LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := s.pathProvider(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		provider, err := s.provider(r.Context(), kind)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		now := s.nowFunc()
		if purged := s.authState.Purge(now.Add(-authFlowTTL)); purged > 0 {
			log.Debug().Int("purged", purged).Msg("expired auth flow states removed")
		}

		state := generateRandomString(32)
		flow := &authflowrepo.AuthFlowState{
			Provider:     string(kind),
			CodeVerifier: oauth2.GenerateVerifier(),
			Nonce:        generateRandomString(16),
			CreatedAt:    now,
		}
		if err := s.authState.Upsert(state, flow); err != nil {
			writeServiceError(w, r, err)
			return
		}

		http.Redirect(w, r, provider.AuthCodeURL(state, flow.Nonce, flow.CodeVerifier), http.StatusFound)
	}
}

// OAuth2CallbackHandler finishes the provider flow and hands the issued tokens to the frontend.
// Failures are reported to the frontend through the error query parameter.
func (s *Server) OAuth2CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(code, description string) {
			log.Warn().Str("error", code).Str("description", description).Msg("provider login failed")
			http.Redirect(w, r, frontendRedirect(s.config.GetFrontendRedirectURL(), url.Values{
				"error":             {code},
				"error_description": {description},
			}), http.StatusFound)
		}

		// Check for authorization errors
		if errorParam := r.FormValue("error"); errorParam != "" {
			fail(errorParam, r.FormValue("error_description"))
			return
		}

		state := r.FormValue("state")
		code := r.FormValue("code")
		if code == "" || state == "" {
			fail(autherrors.KindInvalidRequest.String(), "missing code or state parameter")
			return
		}

		kind, err := s.pathProvider(r)
		if err != nil {
			fail(autherrors.KindOf(err).String(), err.Error())
			return
		}

		flow, err := s.authState.Take(state)
		if err != nil {
			fail(autherrors.KindInvalidRequest.String(), "invalid state parameter")
			return
		}
		if flow.Provider != string(kind) {
			fail(autherrors.KindInvalidRequest.String(), "state was issued for another provider")
			return
		}
		if !s.nowFunc().Before(flow.CreatedAt.Add(authFlowTTL)) {
			fail(autherrors.KindInvalidRequest.String(), "login attempt expired")
			return
		}

		provider, err := s.provider(r.Context(), kind)
		if err != nil {
			fail(autherrors.KindOf(err).String(), err.Error())
			return
		}
		claims, err := provider.Exchange(r.Context(), code, flow.CodeVerifier, flow.Nonce)
		if err != nil {
			fail(autherrors.KindBadCredentials.String(), err.Error())
			return
		}

		resp, err := s.auth.LoginExternal(r.Context(), kind, claims)
		if err != nil {
			fail(autherrors.KindOf(err).String(), err.Error())
			return
		}

		http.Redirect(w, r, frontendRedirect(s.config.GetFrontendRedirectURL(), url.Values{
			"token":        {resp.Token},
			"refreshToken": {resp.RefreshToken},
			"email":        {resp.Email},
			"expiresIn":    {strconv.Itoa(resp.ExpiresIn)},
		}), http.StatusFound)
	}
}
