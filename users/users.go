package users

import (
	"context"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// ProviderKind identifies where an account's credentials live.
type ProviderKind string

const (
	ProviderLocal    ProviderKind = "LOCAL"
	ProviderGoogle   ProviderKind = "GOOGLE"
	ProviderFacebook ProviderKind = "FACEBOOK"
)

// ExternalProviders lists every provider that authenticates outside this service.
var ExternalProviders = []ProviderKind{ProviderGoogle, ProviderFacebook}

// ParseProviderKind maps a provider name ("google", "FACEBOOK") to its kind.
func ParseProviderKind(name string) (ProviderKind, error) {
	kind := ProviderKind(strings.ToUpper(strings.TrimSpace(name)))
	switch kind {
	case ProviderLocal, ProviderGoogle, ProviderFacebook:
		return kind, nil
	}
	return "", autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "provider %q", name)
}

func (p ProviderKind) IsExternal() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

// Lower returns the lowercase name used in URLs.
func (p ProviderKind) Lower() string {
	return strings.ToLower(string(p))
}

const (
	// RoleUser is the role given to self-registered and first-time external accounts.
	RoleUser  = "ROLE_USER"
	RoleStaff = "ROLE_STAFF"
	RoleAdmin = "ROLE_ADMIN"
)

// KnownRoles lists the roles an administrator may grant.
var KnownRoles = []string{RoleUser, RoleStaff, RoleAdmin}

// NormalizeRole maps "admin", "Admin" or "ROLE_ADMIN" to the canonical role name.
func NormalizeRole(name string) (string, error) {
	role := strings.ToUpper(strings.TrimSpace(name))
	if role == "" {
		return "", autherrors.Wrapf(autherrors.ErrInvalidRequest, "role name is required")
	}
	if !strings.HasPrefix(role, "ROLE_") {
		role = "ROLE_" + role
	}
	for _, known := range KnownRoles {
		if known == role {
			return role, nil
		}
	}
	return "", autherrors.Wrapf(autherrors.ErrInvalidRequest, "unknown role %q", name)
}

type User struct {
	ID                 int64        `json:"id,omitempty"`          // Unique identifier for the user
	Email              string       `json:"email,omitempty"`       // User's email address, the token subject
	PasswordHash       string       `json:"-"`                     // Hashed version of the user's password - never serialize
	FullName           string       `json:"full_name,omitempty"`   // Display name
	PictureURL         string       `json:"picture_url,omitempty"` // Avatar, adopted from the identity provider
	Roles              []string     `json:"roles,omitempty"`       // Ordered role names, e.g. ROLE_USER
	Provider           ProviderKind `json:"provider,omitempty"`    // Credential source
	ProviderID         *string      `json:"provider_id,omitempty"` // Subject at the identity provider, absent for LOCAL
	EmailVerified      bool         `json:"email_verified"`
	IsActive           bool         `json:"is_active"` // Inactive accounts cannot log in
	VerificationCode   string       `json:"-"`
	VerificationExpiry time.Time    `json:"-"`
	ResetCode          string       `json:"-"` // Single use password reset code
	ResetExpiry        time.Time    `json:"-"`
	CreatedAt          time.Time    `json:"created_at,omitempty"`
	UpdatedAt          time.Time    `json:"updated_at,omitempty"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	if u.ProviderID != nil {
		id := *u.ProviderID
		c.ProviderID = &id
	}
	return &c
}

// UserRepo persists user records. Lookups return autherrors.ErrUserNotFound when nothing matches.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByVerificationCode(ctx context.Context, code string) (*User, error)
	FindByResetCode(ctx context.Context, code string) (*User, error)
	// List returns every account ordered by ID.
	List(ctx context.Context) ([]*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts when ID is zero (assigning the ID) and updates otherwise.
	Save(ctx context.Context, user *User) (*User, error)
}
