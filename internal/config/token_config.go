package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

type TokenConfig interface {
	GetSigningSecret() ([]byte, error)
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetDefaultRole() string
	GetRevocationSweepInterval() time.Duration
	GetVerificationCodeTTL() time.Duration
	GetPasswordResetTTL() time.Duration
	GetAdminEmails() []string
}

// GetSigningSecret base64-decodes JWT_SECRET. Both the standard and URL alphabets are accepted.
func (e EnvVars) GetSigningSecret() ([]byte, error) {
	if e.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	secret, err := base64.StdEncoding.DecodeString(e.JWTSecret)
	if err != nil {
		if secret, err = base64.URLEncoding.DecodeString(e.JWTSecret); err != nil {
			return nil, fmt.Errorf("JWT_SECRET is not valid base64: %w", err)
		}
	}
	return secret, nil
}

func (e EnvVars) GetAccessTokenTTL() time.Duration {
	return e.AccessTokenTTL
}

func (e EnvVars) GetRefreshTokenTTL() time.Duration {
	return e.RefreshTokenTTL
}

func (e EnvVars) GetDefaultRole() string {
	return e.DefaultRole
}

func (e EnvVars) GetRevocationSweepInterval() time.Duration {
	return e.RevocationSweepInterval
}

func (e EnvVars) GetVerificationCodeTTL() time.Duration {
	return e.VerificationCodeTTL
}

func (e EnvVars) GetPasswordResetTTL() time.Duration {
	return e.PasswordResetTTL
}

// GetAdminEmails lists accounts granted ROLE_ADMIN when they are created.
func (e EnvVars) GetAdminEmails() []string {
	emails := make([]string, 0, len(e.AdminEmails))
	for _, email := range e.AdminEmails {
		if email = strings.TrimSpace(email); email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}
