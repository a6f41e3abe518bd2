package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// ForgotPassword emails a single use reset code. Unknown and disabled accounts get no
// email but the call still succeeds, so the response does not reveal which emails exist.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, autherrors.ErrUserNotFound) {
		log.Debug().Str("email", req.Email).Msg("password reset requested for unknown account")
		return nil
	}
	if err != nil {
		return autherrors.Wrapf(err, "forgot password")
	}
	if !user.IsActive {
		log.Debug().Int64("user_id", user.ID).Msg("password reset requested for disabled account")
		return nil
	}

	now := s.nowTime()
	user.ResetCode = uuid.NewString()
	user.ResetExpiry = now.Add(s.resetTTL)
	user.UpdatedAt = now
	if _, err := s.users.Save(ctx, user); err != nil {
		return autherrors.Wrapf(err, "forgot password")
	}
	log.Info().Int64("user_id", user.ID).Msg("password reset requested")

	s.sendPasswordReset(user.Email, user.ResetCode)
	return nil
}

// ResetPassword consumes a reset code and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByResetCode(ctx, req.Code)
	if errors.Is(err, autherrors.ErrUserNotFound) {
		return autherrors.ErrInvalidResetCode
	}
	if err != nil {
		return err
	}

	now := s.nowTime()
	if !now.Before(user.ResetExpiry) {
		return autherrors.ErrResetCodeExpired
	}
	if !user.IsActive {
		return autherrors.Wrapf(autherrors.ErrAccountDisabled, "user %d", user.ID)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return autherrors.Wrapf(err, "reset password")
	}
	user.PasswordHash = hash
	user.ResetCode = ""
	user.ResetExpiry = time.Time{}
	user.UpdatedAt = now
	if _, err := s.users.Save(ctx, user); err != nil {
		return autherrors.Wrapf(err, "reset password")
	}
	log.Info().Int64("user_id", user.ID).Msg("password reset")
	return nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, principal *Principal, req ChangePasswordRequest) error {
	if principal == nil {
		return autherrors.ErrUserNotResolved
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(req.OldPassword, user.PasswordHash) {
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return autherrors.Wrapf(err, "change password")
	}
	user.PasswordHash = hash
	user.ResetCode = ""
	user.ResetExpiry = time.Time{}
	user.UpdatedAt = s.nowTime()
	if _, err := s.users.Save(ctx, user); err != nil {
		return autherrors.Wrapf(err, "change password")
	}
	log.Info().Int64("user_id", user.ID).Msg("password changed")
	return nil
}

// UpdateProfile sets the caller's display name and, when given, avatar.
func (s *Service) UpdateProfile(ctx context.Context, principal *Principal, req UpdateProfileRequest) (*UserResponse, error) {
	if principal == nil {
		return nil, autherrors.ErrUserNotResolved
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	user.FullName = req.FullName
	if req.Avatar != "" {
		user.PictureURL = req.Avatar
	}
	user.UpdatedAt = s.nowTime()

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, autherrors.Wrapf(err, "update profile")
	}
	return newUserResponse(saved), nil
}
