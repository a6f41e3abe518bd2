package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) (*url.URL, url.Values) {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u, u.Query()
}

// startLogin follows the provider login redirect and returns the issued state.
func (f *testFixture) startLogin(t *testing.T, provider string) string {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/oauth2/"+provider+"/login", nil, nil)
	u, q := redirectQuery(t, rec)
	require.Equal(t, "provider.test", u.Host)
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("nonce"))
	require.NotEmpty(t, q.Get("verifier"))
	return q.Get("state")
}

func (f *testFixture) callback(t *testing.T, provider string, params url.Values) url.Values {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/oauth2/"+provider+"/callback?"+params.Encode(), nil, nil)
	u, q := redirectQuery(t, rec)
	require.Equal(t, "app.test", u.Host)
	require.Equal(t, "/oauth2/redirect", u.Path)
	return q
}

func TestOAuth2Login(t *testing.T) {
	t.Run("new account is created and signed in", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.startLogin(t, "google")
		require.Equal(t, 1, f.authState.Len())

		q := f.callback(t, "google", url.Values{"state": {state}, "code": {"good-code"}})
		require.Empty(t, q.Get("error"))
		require.Equal(t, "g.user@example.com", q.Get("email"))
		require.NotEmpty(t, q.Get("refreshToken"))
		require.Equal(t, "3600", q.Get("expiresIn"))
		require.Equal(t, 0, f.authState.Len())

		rec := f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(q.Get("token")))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		me := decode[auth.UserResponse](t, rec)
		require.Equal(t, "GOOGLE", me.Provider)
		require.Equal(t, "Google User", me.FullName)
		require.Equal(t, "https://img.test/g.png", me.Avatar)
		require.True(t, me.EmailVerified)
	})

	t.Run("state is single use", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.startLogin(t, "google")
		params := url.Values{"state": {state}, "code": {"good-code"}}
		require.Empty(t, f.callback(t, "google", params).Get("error"))
		require.Equal(t, "invalid_request", f.callback(t, "google", params).Get("error"))
	})

	t.Run("expired state", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.startLogin(t, "google")
		f.advance(11 * time.Minute)
		q := f.callback(t, "google", url.Values{"state": {state}, "code": {"good-code"}})
		require.Equal(t, "invalid_request", q.Get("error"))
	})

	t.Run("stale states are purged on the next login", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startLogin(t, "google")
		f.advance(11 * time.Minute)
		f.startLogin(t, "google")
		require.Equal(t, 1, f.authState.Len())
	})

	t.Run("state from another provider", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.startLogin(t, "google")
		q := f.callback(t, "facebook", url.Values{"state": {state}, "code": {"good-code"}})
		require.Equal(t, "invalid_request", q.Get("error"))
	})

	t.Run("provider reported error", func(t *testing.T) {
		f := setupTestFixture(t)
		q := f.callback(t, "google", url.Values{"error": {"access_denied"}, "error_description": {"user cancelled"}})
		require.Equal(t, "access_denied", q.Get("error"))
		require.Equal(t, "user cancelled", q.Get("error_description"))
	})

	t.Run("failed code exchange", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.startLogin(t, "google")
		q := f.callback(t, "google", url.Values{"state": {state}, "code": {"bad-code"}})
		require.Equal(t, "bad_credentials", q.Get("error"))
		require.Empty(t, q.Get("token"))
	})

	t.Run("missing code", func(t *testing.T) {
		f := setupTestFixture(t)
		q := f.callback(t, "google", url.Values{"state": {"abc"}})
		require.Equal(t, "invalid_request", q.Get("error"))
	})

	t.Run("local account is upgraded", func(t *testing.T) {
		f := setupTestFixture(t)
		f.google.claims["email"] = testUserEmail
		f.register(t)

		state := f.startLogin(t, "google")
		q := f.callback(t, "google", url.Values{"state": {state}, "code": {"good-code"}})
		require.Empty(t, q.Get("error"))

		user, err := f.userRepo.FindByEmail(context.Background(), testUserEmail)
		require.NoError(t, err)
		require.Equal(t, users.ProviderGoogle, user.Provider)
	})
}

func TestOAuth2Login_UnsupportedProvider(t *testing.T) {
	f := setupTestFixture(t)
	for _, provider := range []string{"github", "local", "facebook"} {
		t.Run(provider, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/oauth2/"+provider+"/login", nil, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "unsupported_provider", decode[server.ErrorResponse](t, rec).Error)
		})
	}
}

func TestFacebookProvider(t *testing.T) {
	var gotVerifier, gotAuthorization string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotVerifier = r.Form.Get("code_verifier")
		if r.Form.Get("code") != "fb-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "fb-access", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "fb-42",
			"name":    "Face Book",
			"email":   "fb.user@example.com",
			"picture": map[string]any{"data": map[string]any{"url": "https://img.test/fb.png"}},
		})
	})
	graph := httptest.NewServer(mux)
	defer graph.Close()

	provider := server.NewFacebookProvider(
		config.ProviderCredentials{ClientID: "fb-client", ClientSecret: "fb-secret", RedirectURL: "http://auth.test/oauth2/facebook/callback"},
		oauth2.Endpoint{AuthURL: graph.URL + "/dialog", TokenURL: graph.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		graph.URL+"/me?fields=id,name,email,picture",
	)

	t.Run("auth code url carries state and challenge", func(t *testing.T) {
		u, err := url.Parse(provider.AuthCodeURL("state-1", "nonce-1", oauth2.GenerateVerifier()))
		require.NoError(t, err)
		require.Equal(t, "state-1", u.Query().Get("state"))
		require.Equal(t, "S256", u.Query().Get("code_challenge_method"))
		require.Equal(t, "fb-client", u.Query().Get("client_id"))
	})

	t.Run("exchange returns graph profile", func(t *testing.T) {
		claims, err := provider.Exchange(context.Background(), "fb-code", "verifier-1", "")
		require.NoError(t, err)
		require.Equal(t, "verifier-1", gotVerifier)
		require.Equal(t, "Bearer fb-access", gotAuthorization)
		require.Equal(t, "fb.user@example.com", claims["email"])
		require.Equal(t, "fb-42", claims["id"])
	})

	t.Run("exchange failure", func(t *testing.T) {
		_, err := provider.Exchange(context.Background(), "wrong", "verifier-1", "")
		require.Error(t, err)
	})
}

func TestFrontendRedirect(t *testing.T) {
	got := server.FrontendRedirect("http://app.test/cb?keep=1", url.Values{"token": {"a b"}})
	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "1", u.Query().Get("keep"))
	require.Equal(t, "a b", u.Query().Get("token"))
}
