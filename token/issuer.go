package token

import (
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

// Issuer mints access and refresh tokens. It has no side effects.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(codec *Codec, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccessToken embeds the account's id, name and roles under its email.
func (i *Issuer) IssueAccessToken(user *users.User) (string, error) {
	if user == nil || user.ID <= 0 || user.Email == "" {
		return "", autherrors.Wrapf(autherrors.ErrUserNotResolved, "issue access token")
	}
	return i.codec.Encode(Claims{
		Subject:  user.Email,
		UserID:   user.ID,
		FullName: user.FullName,
		Roles:    append([]string(nil), user.Roles...),
		Type:     TypeAccess,
		ID:       uuid.NewString(),
	}, i.accessTTL)
}

// IssueRefreshToken carries the subject only.
func (i *Issuer) IssueRefreshToken(subjectEmail string) (string, error) {
	if subjectEmail == "" {
		return "", autherrors.Wrapf(autherrors.ErrUserNotResolved, "issue refresh token")
	}
	return i.codec.Encode(Claims{
		Subject: subjectEmail,
		Type:    TypeRefresh,
		ID:      uuid.NewString(),
	}, i.refreshTTL)
}
