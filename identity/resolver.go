// Package identity maps a login attempt, by password or through an external provider,
// to a persisted account.
package identity

import (
	"context"
	"errors"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

// Identity is who a login attempt claims to be.
type Identity struct {
	Email         string
	DisplayName   string
	PictureURL    string
	Provider      users.ProviderKind
	ProviderID    *string
	EmailVerified bool // the provider asserts the person controls Email
}

// Result pairs the authenticated identity with the account it resolved to.
type Result struct {
	Identity Identity
	User     *users.User
}

type Resolver struct {
	repo         users.UserRepo
	hasher       users.PasswordHasher
	defaultRole  string
	initialRoles func(email string) []string
	nowFunc      func() time.Time
}

type ResolverOption func(*Resolver)

func WithNowFunc(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.nowFunc = now
	}
}

// WithInitialRoles decides the roles of accounts created on first provider login.
// Without it new accounts get the default role alone.
func WithInitialRoles(roles func(email string) []string) ResolverOption {
	return func(r *Resolver) {
		r.initialRoles = roles
	}
}

func NewResolver(repo users.UserRepo, hasher users.PasswordHasher, defaultRole string, options ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:        repo,
		hasher:      hasher,
		defaultRole: defaultRole,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.defaultRole == "" {
		r.defaultRole = users.RoleUser
	}
	if r.initialRoles == nil {
		r.initialRoles = func(string) []string { return []string{r.defaultRole} }
	}
	return r
}

// ResolveLocal checks an email and password against the stored hash.
// The password is checked before the active flag.
func (r *Resolver) ResolveLocal(ctx context.Context, email, password string) (*Result, error) {
	user, err := r.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !r.hasher.Matches(password, user.PasswordHash) {
		return nil, autherrors.ErrBadCredentials
	}
	if !user.IsActive {
		return nil, autherrors.Wrapf(autherrors.ErrAccountDisabled, "user %d", user.ID)
	}

	return &Result{
		Identity: Identity{
			Email:       user.Email,
			DisplayName: user.FullName,
			PictureURL:  user.PictureURL,
			Provider:    users.ProviderLocal,
		},
		User: user,
	}, nil
}

// ResolveExternal finds or creates the account behind a provider's user-info claims.
// A LOCAL account with the same email is upgraded to the provider when the provider has
// verified the email. An account bound to another provider, or to another subject at the
// same provider, is refused.
func (r *Resolver) ResolveExternal(ctx context.Context, kind users.ProviderKind, claims map[string]any) (*Result, error) {
	id, err := Extract(kind, claims)
	if err != nil {
		return nil, err
	}

	user, err := r.repo.FindByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, autherrors.ErrUserNotFound):
		user, err = r.create(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Result{Identity: id, User: user}, nil
	case err != nil:
		return nil, err
	}

	if !user.IsActive {
		return nil, autherrors.Wrapf(autherrors.ErrAccountDisabled, "user %d", user.ID)
	}

	switch user.Provider {
	case users.ProviderLocal, "":
		if !id.EmailVerified {
			return nil, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "%s has not verified %s, account %d not linked", kind, id.Email, user.ID)
		}
		user, err = r.upgrade(ctx, user, id)
		if err != nil {
			return nil, err
		}
	case id.Provider:
		if user.ProviderID != nil && id.ProviderID != nil && !utils.Equal(user.ProviderID, id.ProviderID) {
			return nil, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "%s subject does not match account %d", kind, user.ID)
		}
	default:
		return nil, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "account %d is bound to %s", user.ID, user.Provider)
	}

	return &Result{Identity: id, User: user}, nil
}

func (r *Resolver) create(ctx context.Context, id Identity) (*users.User, error) {
	now := r.nowFunc()
	user, err := r.repo.Save(ctx, &users.User{
		Email:         id.Email,
		FullName:      id.DisplayName,
		PictureURL:    id.PictureURL,
		Roles:         r.initialRoles(id.Email),
		Provider:      id.Provider,
		ProviderID:    id.ProviderID,
		EmailVerified: id.EmailVerified,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, autherrors.Wrapf(err, "create %s account", id.Provider)
	}
	log.Info().Int64("user_id", user.ID).Str("provider", string(id.Provider)).Msg("account created from provider login")
	return user, nil
}

func (r *Resolver) upgrade(ctx context.Context, user *users.User, id Identity) (*users.User, error) {
	user.Provider = id.Provider
	user.ProviderID = id.ProviderID
	user.EmailVerified = true
	user.VerificationCode = ""
	if id.PictureURL != "" {
		user.PictureURL = id.PictureURL
	}
	user.UpdatedAt = r.nowFunc()

	saved, err := r.repo.Save(ctx, user)
	if err != nil {
		return nil, autherrors.Wrapf(err, "upgrade account %d", user.ID)
	}
	log.Info().Int64("user_id", saved.ID).Str("provider", string(id.Provider)).Msg("local account linked to provider")
	return saved, nil
}
