package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	TokenConfig
	OAuthConfig
	CorsConfig
	SmtpConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetFrontendURL() string
	GetFrontendRedirectURL() string
	GetDBPath() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SmtpConfig interface {
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
}

type mainConfig struct {
	EnvVars
}

var _ Config = mainConfig{}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return mainConfig{EnvVars: vars}, nil
}

// FromVars wraps already populated variables, mainly for tests.
func FromVars(vars EnvVars) Config {
	return mainConfig{EnvVars: vars}
}
