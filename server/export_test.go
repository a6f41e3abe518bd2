package server

import (
	"github.com/jrsteele09/go-session-auth/internal/config"
	"golang.org/x/oauth2"
)

// NewFacebookProvider exposes the Graph API provider for tests against a local endpoint.
func NewFacebookProvider(creds config.ProviderCredentials, endpoint oauth2.Endpoint, userInfoURL string) Provider {
	return newFacebookProvider(creds, endpoint, userInfoURL)
}

var FrontendRedirect = frontendRedirect
