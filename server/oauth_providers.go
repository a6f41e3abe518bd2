package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-session-auth/internal/config"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const (
	googleIssuer        = "https://accounts.google.com"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture"
)

// Provider is an external identity provider reached through the authorization code flow.
type Provider interface {
	// AuthCodeURL is where the browser is sent to sign in.
	AuthCodeURL(state, nonce, verifier string) string
	// Exchange trades the callback code for the user's profile claims.
	Exchange(ctx context.Context, code, verifier, nonce string) (map[string]any, error)
}

// googleProvider signs in with OpenID Connect and reads the profile from the verified ID token.
type googleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

func newGoogleProvider(ctx context.Context, creds config.ProviderCredentials) (*googleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &googleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: creds.ClientID}),
	}, nil
}

func (g *googleProvider) AuthCodeURL(state, nonce, verifier string) string {
	return g.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce), oauth2.S256ChallengeOption(verifier))
}

func (g *googleProvider) Exchange(ctx context.Context, code, verifier, nonce string) (map[string]any, error) {
	oauth2Token, err := g.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, autherrors.New("no ID token in response")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}
	// Validate nonce to prevent replay attacks
	if idToken.Nonce != nonce {
		return nil, autherrors.New("invalid nonce")
	}

	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}
	return claims, nil
}

// facebookProvider signs in with plain OAuth2 and reads the profile from the Graph API.
type facebookProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
}

func newFacebookProvider(creds config.ProviderCredentials, endpoint oauth2.Endpoint, userInfoURL string) *facebookProvider {
	return &facebookProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
		},
		userInfoURL: userInfoURL,
	}
}

func (f *facebookProvider) AuthCodeURL(state, _, verifier string) string {
	return f.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (f *facebookProvider) Exchange(ctx context.Context, code, verifier, _ string) (map[string]any, error) {
	oauth2Token, err := f.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.oauth2Config.Client(ctx, oauth2Token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch user info: status %d: %s", resp.StatusCode, body)
	}

	claims := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return claims, nil
}

func (s *Server) credentials(kind users.ProviderKind) config.ProviderCredentials {
	switch kind {
	case users.ProviderGoogle:
		return s.config.GetGoogleCredentials()
	case users.ProviderFacebook:
		return s.config.GetFacebookCredentials()
	}
	return config.ProviderCredentials{}
}

func (s *Server) providerEnabled(kind users.ProviderKind) bool {
	s.providersLock.RLock()
	_, exists := s.providers[kind]
	s.providersLock.RUnlock()
	return exists || s.credentials(kind).Enabled()
}

// provider returns the cached provider for kind, building it on first use.
func (s *Server) provider(ctx context.Context, kind users.ProviderKind) (Provider, error) {
	s.providersLock.RLock()
	p, exists := s.providers[kind]
	s.providersLock.RUnlock()
	if exists {
		return p, nil
	}

	creds := s.credentials(kind)
	if !kind.IsExternal() || !creds.Enabled() {
		return nil, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "provider %q is not configured", kind.Lower())
	}

	switch kind {
	case users.ProviderGoogle:
		// Discovery outlives the request that triggered it
		g, err := newGoogleProvider(context.WithoutCancel(ctx), creds)
		if err != nil {
			return nil, err
		}
		p = g
	case users.ProviderFacebook:
		p = newFacebookProvider(creds, facebook.Endpoint, facebookUserInfoURL)
	}

	s.providersLock.Lock()
	defer s.providersLock.Unlock()
	if existing, ok := s.providers[kind]; ok {
		return existing, nil
	}
	s.providers[kind] = p
	return p, nil
}
