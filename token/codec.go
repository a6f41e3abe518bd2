package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// Codec turns Claims into signed compact tokens and back.
type Codec struct {
	signer Signer
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(signer Signer, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{
		signer: signer,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
			jwt.WithTimeFunc(now),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
		),
	}
}

// Encode stamps IssuedAt and ExpiresAt from the clock and signs the claims.
// Timestamps carry whole seconds: IssuedAt rounds down and ExpiresAt rounds up,
// so a token is never accepted for less than ttl. ttl must be at least one second.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", autherrors.Wrapf(autherrors.ErrUserNotResolved, "encode: subject is required")
	}
	if ttl < time.Second {
		return "", fmt.Errorf("encode: ttl must be at least 1s, got %s", ttl)
	}

	now := c.now()
	claims.IssuedAt = now.Truncate(time.Second)
	claims.ExpiresAt = ceilSecond(now.Add(ttl))

	return c.signer.Sign(toWire(claims))
}

// Decode verifies the signature and expiry of raw and returns its claims.
func (c *Codec) Decode(raw string) (*Claims, error) {
	wire := &wireClaims{}
	if _, err := c.parser.ParseWithClaims(raw, wire, c.signer.GetVerificationKey); err != nil {
		return nil, classify(err)
	}
	return wire.claims(), nil
}

func ceilSecond(t time.Time) time.Time {
	whole := t.Truncate(time.Second)
	if whole.Equal(t) {
		return whole
	}
	return whole.Add(time.Second)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return autherrors.Wrapf(autherrors.ErrMalformedToken, "%v", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return autherrors.Wrapf(autherrors.ErrInvalidSignature, "%v", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherrors.ErrExpired
	default:
		return autherrors.Wrapf(autherrors.ErrMalformedToken, "%v", err)
	}
}
