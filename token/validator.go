package token

import (
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// Validator checks a presented token against the codec and the revocation store.
type Validator struct {
	codec *Codec
	store RevocationStore
}

func NewValidator(codec *Codec, store RevocationStore) *Validator {
	return &Validator{codec: codec, store: store}
}

// Verify decodes raw and rejects revoked tokens.
// Signature and expiry are checked before the revocation lookup.
func (v *Validator) Verify(raw string) (*Claims, error) {
	claims, err := v.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if v.store.IsRevoked(raw) {
		return nil, autherrors.ErrRevoked
	}
	return claims, nil
}

// Validate is Verify followed by an exact, case-sensitive subject comparison.
func (v *Validator) Validate(raw, expectedSubject string) (*Claims, error) {
	claims, err := v.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Subject != expectedSubject {
		return nil, autherrors.ErrSubjectMismatch
	}
	return claims, nil
}
