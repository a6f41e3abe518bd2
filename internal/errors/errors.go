package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the token lifecycle and identity resolution
var (
	// Token errors
	ErrMalformedToken    = errors.New("malformed token")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrExpired           = errors.New("token expired")
	ErrRevoked           = errors.New("token revoked")
	ErrSubjectMismatch   = errors.New("token subject mismatch")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	ErrUserNotResolved   = errors.New("user not resolved")

	// Identity errors
	ErrUserNotFound        = errors.New("user not found")
	ErrBadCredentials      = errors.New("bad credentials")
	ErrAccountDisabled     = errors.New("account disabled")
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// Account errors
	ErrEmailInUse              = errors.New("email already in use")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrVerificationExpired     = errors.New("verification code expired")
	ErrInvalidResetCode        = errors.New("invalid password reset code")
	ErrResetCodeExpired        = errors.New("password reset code expired")
	ErrForbidden               = errors.New("forbidden")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Kind discriminates a failure for callers that map errors to a user-visible status.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedToken
	KindInvalidSignature
	KindExpired
	KindRevoked
	KindSubjectMismatch
	KindTokenTypeMismatch
	KindUserNotResolved
	KindUserNotFound
	KindBadCredentials
	KindAccountDisabled
	KindUnsupportedProvider
	KindEmailInUse
	KindInvalidVerificationCode
	KindVerificationExpired
	KindInvalidRequest
	KindInvalidResetCode
	KindResetCodeExpired
	KindForbidden
)

var kinds = []struct {
	err  error
	kind Kind
	name string
}{
	{ErrMalformedToken, KindMalformedToken, "malformed_token"},
	{ErrInvalidSignature, KindInvalidSignature, "invalid_signature"},
	{ErrExpired, KindExpired, "expired"},
	{ErrRevoked, KindRevoked, "revoked"},
	{ErrSubjectMismatch, KindSubjectMismatch, "subject_mismatch"},
	{ErrTokenTypeMismatch, KindTokenTypeMismatch, "token_type_mismatch"},
	{ErrUserNotResolved, KindUserNotResolved, "user_not_resolved"},
	{ErrUserNotFound, KindUserNotFound, "user_not_found"},
	{ErrBadCredentials, KindBadCredentials, "bad_credentials"},
	{ErrAccountDisabled, KindAccountDisabled, "account_disabled"},
	{ErrUnsupportedProvider, KindUnsupportedProvider, "unsupported_provider"},
	{ErrEmailInUse, KindEmailInUse, "email_in_use"},
	{ErrInvalidVerificationCode, KindInvalidVerificationCode, "invalid_verification_code"},
	{ErrVerificationExpired, KindVerificationExpired, "verification_expired"},
	{ErrInvalidRequest, KindInvalidRequest, "invalid_request"},
	{ErrInvalidResetCode, KindInvalidResetCode, "invalid_reset_code"},
	{ErrResetCodeExpired, KindResetCodeExpired, "reset_code_expired"},
	{ErrForbidden, KindForbidden, "forbidden"},
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	for _, entry := range kinds {
		if entry.kind == k {
			return entry.name
		}
	}
	return "server_error"
}

// IsTokenFailure reports whether the kind belongs to bearer token validation.
func (k Kind) IsTokenFailure() bool {
	switch k {
	case KindMalformedToken, KindInvalidSignature, KindExpired, KindRevoked, KindSubjectMismatch, KindTokenTypeMismatch:
		return true
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
