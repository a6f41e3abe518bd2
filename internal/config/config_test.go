package config_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	t.Setenv("PORT", "9090")

	c, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 24*time.Hour, c.GetAccessTokenTTL())
	require.Equal(t, 7*24*time.Hour, c.GetRefreshTokenTTL())
	require.Equal(t, "ROLE_USER", c.GetDefaultRole())
	require.Equal(t, 10*time.Minute, c.GetRevocationSweepInterval())
	require.Equal(t, time.Hour, c.GetPasswordResetTTL())
	require.Equal(t, "http://localhost:3000", c.GetFrontendURL())
	require.Empty(t, c.GetAdminEmails())

	secret, err := c.GetSigningSecret()
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef0123456789abcdef", string(secret))
}

func TestLoad_AdminEmails(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "root@example.com, ops@example.com,,")

	c, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"root@example.com", "ops@example.com"}, c.GetAdminEmails())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_ACCESS_TTL", "soon")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env")
}

func TestSigningSecret(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := config.FromVars(config.EnvVars{}).GetSigningSecret()
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWT_SECRET is required")
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := config.FromVars(config.EnvVars{JWTSecret: "%%%"}).GetSigningSecret()
		require.Error(t, err)
		require.Contains(t, err.Error(), "not valid base64")
	})

	t.Run("url alphabet", func(t *testing.T) {
		raw := []byte{0xfb, 0xff, 0xfe, 0x01}
		secret, err := config.FromVars(config.EnvVars{JWTSecret: base64.URLEncoding.EncodeToString(raw)}).GetSigningSecret()
		require.NoError(t, err)
		require.Equal(t, raw, secret)
	})
}

func TestProviderCredentials(t *testing.T) {
	c := config.FromVars(config.EnvVars{
		BaseURL:            "https://auth.example.com",
		GoogleClientID:     "gid",
		GoogleClientSecret: "gsecret",
		FacebookClientID:   "fid",
	})

	google := c.GetGoogleCredentials()
	require.True(t, google.Enabled())
	require.Equal(t, "https://auth.example.com/oauth2/google/callback", google.RedirectURL)

	require.False(t, c.GetFacebookCredentials().Enabled())
}

func TestAllowedOrigins(t *testing.T) {
	c := config.FromVars(config.EnvVars{AllowedOrigins: []string{" http://a.com", "", "http://b.com"}})
	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("http://a.com"))
	require.False(t, origins.IsAllowedOrigin("http://c.com"))
	require.Equal(t, "http://a.com, http://b.com", origins.String())
}
