package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// Type separates bearer credentials from refresh credentials.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the decoded, verified content of a token.
type Claims struct {
	Subject   string    // email of the account
	UserID    int64     // zero on refresh tokens
	FullName  string    // empty on refresh tokens
	Roles     []string  // ordered, empty on refresh tokens
	Type      Type      // access or refresh
	ID        string    // jti, unique per token
	IssuedAt  time.Time // second precision
	ExpiresAt time.Time // second precision
}

// RequireType fails with ErrTokenTypeMismatch unless the claims belong to a token of type t.
func (c *Claims) RequireType(t Type) error {
	if c.Type != t {
		return autherrors.Wrapf(autherrors.ErrTokenTypeMismatch, "want %s token, got %q", t, c.Type)
	}
	return nil
}

// wireClaims is the JSON payload carried inside the JWS.
type wireClaims struct {
	jwt.RegisteredClaims
	UserID   int64    `json:"userId,omitempty"`
	FullName string   `json:"fullName,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     Type     `json:"token_type"`
}

func toWire(c Claims) *wireClaims {
	return &wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			ID:        c.ID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		UserID:   c.UserID,
		FullName: c.FullName,
		Roles:    c.Roles,
		Type:     c.Type,
	}
}

func (w *wireClaims) claims() *Claims {
	c := &Claims{
		Subject:  w.Subject,
		UserID:   w.UserID,
		FullName: w.FullName,
		Roles:    w.Roles,
		Type:     w.Type,
		ID:       w.ID,
	}
	if w.IssuedAt != nil {
		c.IssuedAt = w.IssuedAt.Time
	}
	if w.ExpiresAt != nil {
		c.ExpiresAt = w.ExpiresAt.Time
	}
	return c
}
