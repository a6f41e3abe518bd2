package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserEmail    = "jane.roe@example.com"
	testUserPassword = "Password123"
	testUserName     = "Jane Roe"
	testFrontend     = "http://app.test/oauth2/redirect"
	testOrigin       = "http://app.test"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type codeNotifier struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func (n *codeNotifier) SendVerification(_ context.Context, to, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[to] = code
	return nil
}

func (n *codeNotifier) SendPasswordReset(_ context.Context, to, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[to] = code
	return nil
}

func (n *codeNotifier) code(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[to]
}

func (n *codeNotifier) resetCode(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resets[to]
}

// fakeProvider stands in for an identity provider's redirect and code exchange.
type fakeProvider struct {
	claims map[string]any
}

func (p *fakeProvider) AuthCodeURL(state, nonce, verifier string) string {
	q := url.Values{"state": {state}, "nonce": {nonce}, "verifier": {verifier}}
	return "https://provider.test/authorize?" + q.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code, verifier, _ string) (map[string]any, error) {
	if code != "good-code" || verifier == "" {
		return nil, context.Canceled
	}
	return p.claims, nil
}

// testFixture holds all test dependencies
type testFixture struct {
	now       time.Time
	userRepo  *fakeuserrepo.FakeUserRepo
	authState *authflowrepo.InMemoryRepo
	notifier  *codeNotifier
	service   *auth.Service
	google    *fakeProvider
	server    *server.Server
}

func (f *testFixture) Now() time.Time { return f.now }

func (f *testFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		userRepo:  fakeuserrepo.NewFakeUserRepo(),
		authState: authflowrepo.NewInMemoryRepo(),
		notifier:  &codeNotifier{codes: map[string]string{}, resets: map[string]string{}},
		google: &fakeProvider{claims: map[string]any{
			"sub":     "google-123",
			"email":   "g.user@example.com",
			"name":    "Google User",
			"picture": "https://img.test/g.png",

			"email_verified": true,
		}},
	}

	cfg := config.FromVars(config.EnvVars{
		Env:                 "TEST",
		BaseURL:             "http://auth.test",
		FrontendRedirectURL: testFrontend,
		AllowedOrigins:      []string{testOrigin},
		GoogleClientID:      "google-client",
		GoogleClientSecret:  "google-secret",
	})

	signer, err := token.NewHMACSigner(testSecret)
	require.NoError(t, err)
	tokens, err := token.NewManager(signer,
		token.WithTokenExpiry(time.Hour, 24*time.Hour),
		token.WithNowFunc(f.Now),
	)
	require.NoError(t, err)

	f.service, err = auth.NewService(f.userRepo, tokens,
		auth.WithNowTime(f.Now),
		auth.WithPasswordHasher(users.BcryptHasher{Cost: bcrypt.MinCost}),
		auth.WithNotifier(f.notifier),
	)
	require.NoError(t, err)

	f.server, err = server.New(cfg, f.service, f.authState,
		server.WithNowFunc(f.Now),
		server.WithProvider(users.ProviderGoogle, f.google),
	)
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *testFixture) register(t *testing.T) auth.AuthResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAPIRegister, auth.RegisterRequest{
		Email:    testUserEmail,
		Password: testUserPassword,
		FullName: testUserName,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	f.service.Wait()
	return decode[auth.AuthResponse](t, rec)
}

func TestNew(t *testing.T) {
	_, err := server.New(config.FromVars(config.EnvVars{}), nil, authflowrepo.NewInMemoryRepo())
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteHealth, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	rec := f.do(t, http.MethodPost, server.RouteAPILogin, auth.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	login := decode[auth.AuthResponse](t, rec)
	require.Equal(t, "Bearer", login.Type)
	require.Equal(t, 3600, login.ExpiresIn)

	rec = f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(login.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[auth.UserResponse](t, rec)
	require.Equal(t, testUserEmail, me.Email)
	require.Equal(t, testUserName, me.FullName)
	require.False(t, me.EmailVerified)

	rec = f.do(t, http.MethodPost, server.RouteAPILogout, nil, bearer(login.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(login.Token))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "revoked")
	require.Equal(t, "revoked", decode[server.ErrorResponse](t, rec).Error)

	t.Run("logging out twice is rejected by the revoked token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, server.RouteAPILogout, nil, bearer(login.Token))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("a fresh login is unaffected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, server.RouteAPILogin, auth.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		fresh := decode[auth.AuthResponse](t, rec)
		rec = f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(fresh.Token))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRegister(t *testing.T) {
	t.Run("duplicate email", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t)
		rec := f.do(t, http.MethodPost, server.RouteAPIRegister, auth.RegisterRequest{
			Email: testUserEmail, Password: testUserPassword, FullName: testUserName,
		}, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "email_in_use", decode[server.ErrorResponse](t, rec).Error)
	})

	t.Run("weak password", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteAPIRegister, auth.RegisterRequest{
			Email: testUserEmail, Password: "weak", FullName: testUserName,
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_request", decode[server.ErrorResponse](t, rec).Error)
	})

	t.Run("multibyte password over the bcrypt limit", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteAPIRegister, auth.RegisterRequest{
			Email: testUserEmail, Password: "Aa1" + strings.Repeat("é", 40), FullName: testUserName,
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		require.Equal(t, "invalid_request", decode[server.ErrorResponse](t, rec).Error)
	})

	t.Run("unknown field", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteAPIRegister, map[string]string{"email": testUserEmail, "role": "ROLE_ADMIN"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteAPIRegister, nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: testUserEmail, password: "Password999"},
		{name: "unknown account", email: "nobody@example.com", password: testUserPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, server.RouteAPILogin, auth.LoginRequest{Email: tt.email, Password: tt.password}, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, "bad_credentials", decode[server.ErrorResponse](t, rec).Error)
		})
	}

	t.Run("disabled account", func(t *testing.T) {
		user, err := f.userRepo.FindByEmail(context.Background(), testUserEmail)
		require.NoError(t, err)
		user.IsActive = false
		_, err = f.userRepo.Save(context.Background(), user)
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, server.RouteAPILogin, auth.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "account_disabled", decode[server.ErrorResponse](t, rec).Error)
	})
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		f.advance(time.Minute)
		rec := f.do(t, http.MethodPost, server.RouteAPIRefresh, auth.RefreshRequest{RefreshToken: reg.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[auth.AuthResponse](t, rec)
		require.NotEqual(t, reg.Token, resp.Token)

		rec = f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(resp.Token))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, server.RouteAPIRefresh, auth.RefreshRequest{RefreshToken: reg.Token}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "token_type_mismatch", decode[server.ErrorResponse](t, rec).Error)
	})

	t.Run("refresh token is not a bearer token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(reg.RefreshToken))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "token_type_mismatch", decode[server.ErrorResponse](t, rec).Error)
	})
}

func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	tests := []struct {
		name    string
		headers map[string]string
		kind    string
	}{
		{name: "missing header", headers: nil, kind: "malformed_token"},
		{name: "basic scheme", headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, kind: "malformed_token"},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer "}, kind: "malformed_token"},
		{name: "garbage", headers: bearer("not-a-jwt"), kind: "malformed_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, server.RouteAPIMe, nil, tt.headers)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, tt.kind, decode[server.ErrorResponse](t, rec).Error)
			require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}

	t.Run("lower case scheme", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteAPIMe, nil, map[string]string{"Authorization": "bearer " + reg.Token})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		f.advance(2 * time.Hour)
		rec := f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(reg.Token))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "expired", decode[server.ErrorResponse](t, rec).Error)
	})
}

func TestVerifyEmail(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	rec := f.do(t, http.MethodGet, server.RouteAPIVerifyEmail, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, server.RouteAPIVerifyEmail+"?code=unknown", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_verification_code", decode[server.ErrorResponse](t, rec).Error)

	t.Run("resend replaces the code", func(t *testing.T) {
		first := f.notifier.code(testUserEmail)
		rec := f.do(t, http.MethodPost, server.RouteAPIResendVerification, auth.ResendVerificationRequest{Email: testUserEmail}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		f.service.Wait()
		require.NotEqual(t, first, f.notifier.code(testUserEmail))

		rec = f.do(t, http.MethodGet, server.RouteAPIVerifyEmail+"?code="+url.QueryEscape(first), nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	code := f.notifier.code(testUserEmail)
	rec = f.do(t, http.MethodGet, server.RouteAPIVerifyEmail+"?code="+url.QueryEscape(code), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, server.RouteAPIMe, nil, bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[auth.UserResponse](t, rec).EmailVerified)
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("allowed preflight", func(t *testing.T) {
		rec := f.do(t, http.MethodOptions, server.RouteAPILogin, nil, map[string]string{"Origin": testOrigin})
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("disallowed preflight", func(t *testing.T) {
		rec := f.do(t, http.MethodOptions, server.RouteAPILogin, nil, map[string]string{"Origin": "http://evil.test"})
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("actual request", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, server.RouteHealth, nil, map[string]string{"Origin": testOrigin})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = f.do(t, http.MethodGet, server.RouteAPIProviders, nil, map[string]string{"Origin": testOrigin})
		require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestProviders(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteAPIProviders, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	providers := decode[[]server.ProviderInfo](t, rec)
	require.Equal(t, []server.ProviderInfo{{Name: "google", LoginURL: "http://auth.test/oauth2/google/login"}}, providers)
}
