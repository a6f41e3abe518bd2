package config

// ProviderCredentials are the OAuth2 client settings for one external identity provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the provider has been configured.
func (p ProviderCredentials) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type OAuthConfig interface {
	GetGoogleCredentials() ProviderCredentials
	GetFacebookCredentials() ProviderCredentials
}

func (e EnvVars) GetGoogleCredentials() ProviderCredentials {
	return ProviderCredentials{
		ClientID:     e.GoogleClientID,
		ClientSecret: e.GoogleClientSecret,
		RedirectURL:  e.redirectURL(e.GoogleRedirectURL, "google"),
	}
}

func (e EnvVars) GetFacebookCredentials() ProviderCredentials {
	return ProviderCredentials{
		ClientID:     e.FacebookClientID,
		ClientSecret: e.FacebookClientSecret,
		RedirectURL:  e.redirectURL(e.FacebookRedirectURL, "facebook"),
	}
}

func (e EnvVars) redirectURL(configured, provider string) string {
	if configured != "" {
		return configured
	}
	return e.BaseURL + "/oauth2/" + provider + "/callback"
}
