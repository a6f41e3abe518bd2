package config

import (
	"fmt"
	"time"
)

// EnvVars holds the raw environment values. Defaults are applied by env.Parse.
type EnvVars struct {
	Port                string `env:"PORT" envDefault:"8080"`
	AppName             string `env:"APP_NAME" envDefault:"Session Auth"`
	Env                 string `env:"ENV" envDefault:"DEV"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	BaseURL             string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL         string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	FrontendRedirectURL string `env:"FRONTEND_REDIRECT_URL" envDefault:"http://localhost:3000/oauth2/redirect"`
	DBPath              string `env:"DB_PATH"`

	// Token lifecycle
	JWTSecret               string        `env:"JWT_SECRET"`
	AccessTokenTTL          time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	RefreshTokenTTL         time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	DefaultRole             string        `env:"DEFAULT_ROLE" envDefault:"ROLE_USER"`
	RevocationSweepInterval time.Duration `env:"REVOCATION_SWEEP_INTERVAL" envDefault:"10m"`
	VerificationCodeTTL     time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"24h"`
	PasswordResetTTL        time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	AdminEmails             []string      `env:"ADMIN_EMAILS" envSeparator:","`

	// External identity providers
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL    string `env:"GOOGLE_REDIRECT_URL"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	FacebookRedirectURL  string `env:"FACEBOOK_REDIRECT_URL"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Notification email
	SmtpHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SmtpPort     string `env:"SMTP_PORT" envDefault:"587"`
	SmtpAccount  string `env:"SMTP_ACCOUNT"`
	SmtpPassword string `env:"SMTP_PASSWORD"`
	SmtpFrom     string `env:"SMTP_FROM"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetBaseURL returns the public base URL of this service (e.g., "https://auth.example.com")
// Provider redirect URLs default to paths under it.
func (e EnvVars) GetBaseURL() string {
	return e.BaseURL
}

// GetFrontendURL is the web app that hosts pages linked from emails, such as the reset form.
func (e EnvVars) GetFrontendURL() string {
	return e.FrontendURL
}

// GetFrontendRedirectURL is where the browser lands after a provider login, with the token attached.
func (e EnvVars) GetFrontendRedirectURL() string {
	return e.FrontendRedirectURL
}

// GetDBPath returns the SQLite database path. Empty selects the in-memory user store.
func (e EnvVars) GetDBPath() string {
	return e.DBPath
}

func (e EnvVars) GetSmtpHost() string {
	return e.SmtpHost
}

func (e EnvVars) GetSmtpPort() string {
	return e.SmtpPort
}

func (e EnvVars) GetSmtpAccount() string {
	return e.SmtpAccount
}

func (e EnvVars) GetSmtpPassword() string {
	return e.SmtpPassword
}

func (e EnvVars) GetSmtpFrom() string {
	if e.SmtpFrom == "" {
		return e.SmtpAccount
	}
	return e.SmtpFrom
}
