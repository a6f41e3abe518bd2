package token

import (
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAccessTokenExpiry  = 24 * time.Hour
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Pair is an access token and its companion refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// Manager wires the codec, issuer, validator and revocation store around one signer.
type Manager struct {
	codec              *Codec
	issuer             *Issuer
	validator          *Validator
	store              RevocationStore
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRevocationStore replaces the default in-memory store.
func WithRevocationStore(store RevocationStore) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// ValidateTTLs checks that both lifetimes fit second-precision timestamps and that a
// refresh token outlives the access token it renews.
func ValidateTTLs(access, refresh time.Duration) error {
	if access < time.Second {
		return fmt.Errorf("access token ttl must be at least 1s, got %s", access)
	}
	if refresh < time.Second {
		return fmt.Errorf("refresh token ttl must be at least 1s, got %s", refresh)
	}
	if refresh <= access {
		return fmt.Errorf("refresh token ttl %s must be longer than access token ttl %s", refresh, access)
	}
	return nil
}

// NewManager applies the default lifetimes to unset (non-positive) TTLs and rejects
// combinations ValidateTTLs refuses.
func NewManager(signer Signer, options ...ManagerOption) (*Manager, error) {
	m := &Manager{}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = DefaultRefreshTokenExpiry
	}
	if err := ValidateTTLs(m.accessTokenExpiry, m.refreshTokenExpiry); err != nil {
		return nil, err
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.store == nil {
		m.store = NewInMemoryRevocationStore(max(m.accessTokenExpiry, m.refreshTokenExpiry), WithRevocationClock(m.nowFunc))
	}

	m.codec = NewCodec(signer, m.nowFunc)
	m.issuer = NewIssuer(m.codec, m.accessTokenExpiry, m.refreshTokenExpiry)
	m.validator = NewValidator(m.codec, m.store)
	return m, nil
}

// IssuePair mints an access token for user and a refresh token for its email.
func (m *Manager) IssuePair(user *users.User) (*Pair, error) {
	access, err := m.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := m.issuer.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, ExpiresIn: m.accessTokenExpiry}, nil
}

func (m *Manager) Validate(raw, expectedSubject string) (*Claims, error) {
	return m.validator.Validate(raw, expectedSubject)
}

func (m *Manager) Verify(raw string) (*Claims, error) {
	return m.validator.Verify(raw)
}

// Revoke withdraws a correctly signed token. Tokens that have already expired or
// are already revoked are left alone and reported as success.
func (m *Manager) Revoke(raw, reason string) error {
	claims, err := m.codec.Decode(raw)
	if errors.Is(err, autherrors.ErrExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.store.IsRevoked(raw) {
		return nil
	}

	m.store.Revoke(raw, reason)
	log.Info().Str("jti", claims.ID).Str("sub", claims.Subject).Str("reason", reason).Msg("token revoked")
	return nil
}

func (m *Manager) IsRevoked(raw string) bool {
	return m.store.IsRevoked(raw)
}

func (m *Manager) Store() RevocationStore {
	return m.store
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}
