package auth

import (
	"time"

	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
)

// AuthResponse is returned by every flow that mints a token pair.
type AuthResponse struct {
	// Token is the access token. Usage: "Authorization: Bearer <token>"
	Token string `json:"token"`

	// RefreshToken is exchanged at /api/auth/refresh for a new pair. It is not a bearer credential.
	RefreshToken string `json:"refreshToken"`

	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`

	// Type is always "Bearer"
	Type string `json:"type"`

	// ExpiresIn is the access token lifetime in seconds. The JWT's exp claim is authoritative.
	ExpiresIn int `json:"expiresIn"`
}

func newAuthResponse(user *users.User, pair *token.Pair) *AuthResponse {
	return &AuthResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Email:        user.Email,
		FullName:     user.FullName,
		Roles:        append([]string{}, user.Roles...),
		Type:         "Bearer",
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	}
}

// UserResponse is the public profile of an account.
type UserResponse struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Avatar        string    `json:"avatar,omitempty"`
	Provider      string    `json:"provider"`
	EmailVerified bool      `json:"emailVerified"`
	IsActive      bool      `json:"isActive"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newUserResponse(user *users.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Avatar:        user.PictureURL,
		Provider:      string(user.Provider),
		EmailVerified: user.EmailVerified,
		IsActive:      user.IsActive,
		Roles:         append([]string{}, user.Roles...),
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// Principal is the authenticated caller behind a bearer token.
type Principal struct {
	UserID   int64
	Email    string
	FullName string
	Roles    []string // from the stored account, not the token
	TokenID  string
	Token    string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
