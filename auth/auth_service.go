// Package auth implements the account flows built on the token lifecycle: registration,
// email verification, password and provider login, refresh, logout and bearer authentication,
// plus password recovery, profile upkeep and administrator account management.
package auth

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/identity"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/notify"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const (
	defaultVerificationTTL  = 24 * time.Hour
	defaultPasswordResetTTL = time.Hour
	notifyTimeout           = 30 * time.Second
	logoutReason            = "logout"
)

// Service provides the account flows.
type Service struct {
	users           users.UserRepo
	tokens          *token.Manager
	resolver        *identity.Resolver
	hasher          users.PasswordHasher
	notifier        notify.Notifier
	defaultRole     string
	adminEmails     []string
	verificationTTL time.Duration
	resetTTL        time.Duration
	nowTime         func() time.Time
	pending         sync.WaitGroup // in-flight notifications
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithPasswordHasher(hasher users.PasswordHasher) ServiceOption {
	return func(s *Service) {
		s.hasher = hasher
	}
}

func WithNotifier(notifier notify.Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithDefaultRole sets the role given to new accounts.
func WithDefaultRole(role string) ServiceOption {
	return func(s *Service) {
		if role != "" {
			s.defaultRole = role
		}
	}
}

// WithVerificationTTL sets how long an email verification code stays valid.
func WithVerificationTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.verificationTTL = ttl
	}
}

// WithPasswordResetTTL sets how long a password reset code stays valid.
func WithPasswordResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithAdminEmails grants ROLE_ADMIN to accounts created with one of these emails.
func WithAdminEmails(emails ...string) ServiceOption {
	return func(s *Service) {
		s.adminEmails = append(s.adminEmails, emails...)
	}
}

func NewService(userRepo users.UserRepo, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, autherrors.New("[NewService] users repo is required")
	}
	if tokens == nil {
		return nil, autherrors.New("[NewService] token manager is required")
	}

	s := &Service{
		users:           userRepo,
		tokens:          tokens,
		hasher:          users.BcryptHasher{},
		notifier:        notify.LogNotifier{},
		defaultRole:     users.RoleUser,
		verificationTTL: defaultVerificationTTL,
		resetTTL:        defaultPasswordResetTTL,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.resolver = identity.NewResolver(userRepo, s.hasher, s.defaultRole,
		identity.WithNowFunc(s.nowTime),
		identity.WithInitialRoles(s.initialRoles),
	)
	return s, nil
}

// Register creates an unverified LOCAL account and signs it in. The verification
// email is sent in the background and its failure does not fail registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, autherrors.Wrapf(err, "register")
	}
	if exists {
		return nil, autherrors.ErrEmailInUse
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, autherrors.Wrapf(err, "register")
	}

	now := s.nowTime()
	user, err := s.users.Save(ctx, &users.User{
		Email:              req.Email,
		PasswordHash:       hash,
		FullName:           req.FullName,
		Roles:              s.initialRoles(req.Email),
		Provider:           users.ProviderLocal,
		EmailVerified:      false,
		IsActive:           true,
		VerificationCode:   uuid.NewString(),
		VerificationExpiry: now.Add(s.verificationTTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, autherrors.Wrapf(err, "register")
	}
	log.Info().Int64("user_id", user.ID).Msg("account registered")

	s.sendVerification(user.Email, user.VerificationCode)
	return s.respond(user)
}

// ResendVerification issues a fresh verification code for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, req ResendVerificationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "email already verified")
	}

	now := s.nowTime()
	user.VerificationCode = uuid.NewString()
	user.VerificationExpiry = now.Add(s.verificationTTL)
	user.UpdatedAt = now
	if _, err := s.users.Save(ctx, user); err != nil {
		return autherrors.Wrapf(err, "resend verification")
	}

	s.sendVerification(user.Email, user.VerificationCode)
	return nil
}

// VerifyEmail consumes a verification code.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	user, err := s.users.FindByVerificationCode(ctx, code)
	if errors.Is(err, autherrors.ErrUserNotFound) {
		return autherrors.ErrInvalidVerificationCode
	}
	if err != nil {
		return err
	}

	now := s.nowTime()
	if !now.Before(user.VerificationExpiry) {
		return autherrors.ErrVerificationExpired
	}

	user.EmailVerified = true
	user.VerificationCode = ""
	user.VerificationExpiry = time.Time{}
	user.UpdatedAt = now
	if _, err := s.users.Save(ctx, user); err != nil {
		return autherrors.Wrapf(err, "verify email")
	}
	log.Info().Int64("user_id", user.ID).Msg("email verified")
	return nil
}

// Login signs in with an email and password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := s.resolver.ResolveLocal(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.respond(res.User)
}

// LoginExternal signs in with the user-info claims an identity provider returned.
func (s *Service) LoginExternal(ctx context.Context, kind users.ProviderKind, claims map[string]any) (*AuthResponse, error) {
	res, err := s.resolver.ResolveExternal(ctx, kind, claims)
	if err != nil {
		return nil, err
	}
	return s.respond(res.User)
}

// Refresh exchanges a refresh token for a new pair. The presented refresh token stays valid.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := claims.RequireType(token.TypeRefresh); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, autherrors.Wrapf(autherrors.ErrAccountDisabled, "user %d", user.ID)
	}
	if _, err := s.tokens.Validate(req.RefreshToken, user.Email); err != nil {
		return nil, err
	}
	return s.respond(user)
}

// Logout revokes an access token. Expired and already revoked tokens succeed without effect.
func (s *Service) Logout(_ context.Context, accessToken string) error {
	return s.tokens.Revoke(accessToken, logoutReason)
}

// Authenticate resolves a bearer token to the caller. Roles come from the stored account
// so role changes and deactivation apply before the token expires.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if err := claims.RequireType(token.TypeAccess); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.Validate(accessToken, user.Email); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, autherrors.Wrapf(autherrors.ErrAccountDisabled, "user %d", user.ID)
	}

	return &Principal{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    append([]string{}, user.Roles...),
		TokenID:  claims.ID,
		Token:    accessToken,
	}, nil
}

// CurrentUser returns the profile of the authenticated caller.
func (s *Service) CurrentUser(ctx context.Context, principal *Principal) (*UserResponse, error) {
	if principal == nil {
		return nil, autherrors.ErrUserNotResolved
	}
	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return newUserResponse(user), nil
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// initialRoles gives every new account the default role and configured admins ROLE_ADMIN too.
func (s *Service) initialRoles(email string) []string {
	roles := []string{s.defaultRole}
	if slices.Contains(s.adminEmails, email) && s.defaultRole != users.RoleAdmin {
		roles = append(roles, users.RoleAdmin)
	}
	return roles
}

func (s *Service) respond(user *users.User) (*AuthResponse, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return newAuthResponse(user, pair), nil
}

func (s *Service) sendVerification(email, code string) {
	s.notify(email, "verification", func(ctx context.Context) error {
		return s.notifier.SendVerification(ctx, email, code)
	})
}

func (s *Service) sendPasswordReset(email, code string) {
	s.notify(email, "password reset", func(ctx context.Context) error {
		return s.notifier.SendPasswordReset(ctx, email, code)
	})
}

// notify delivers in the background. A failure is logged and never reaches the caller.
func (s *Service) notify(email, what string, send func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			log.Warn().Err(err).Str("to", email).Msgf("%s email failed", what)
		}
	}()
}
