package auth

import (
	"context"
	"strings"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

// Administrator operations. Callers are expected to have checked ROLE_ADMIN; changes to
// roles and the active flag reach existing access tokens on their next request.

// ListUsers returns every account, or only those holding role when it is not empty.
func (s *Service) ListUsers(ctx context.Context, role string) ([]*UserResponse, error) {
	if role != "" {
		var err error
		if role, err = users.NormalizeRole(role); err != nil {
			return nil, err
		}
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, autherrors.Wrapf(err, "list users")
	}
	resp := make([]*UserResponse, 0, len(all))
	for _, user := range all {
		if role == "" || user.HasRole(role) {
			resp = append(resp, newUserResponse(user))
		}
	}
	return resp, nil
}

func (s *Service) UserByID(ctx context.Context, id int64) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newUserResponse(user), nil
}

// UserByEmail looks an account up by its exact email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*UserResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidRequest, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return newUserResponse(user), nil
}

// UpdateRoles replaces the roles of account id.
func (s *Service) UpdateRoles(ctx context.Context, id int64, req UpdateRolesRequest) (*UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Roles = req.Roles
	user.UpdatedAt = s.nowTime()

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, autherrors.Wrapf(err, "update roles")
	}
	log.Info().Int64("user_id", saved.ID).Strs("roles", saved.Roles).Msg("roles updated")
	return newUserResponse(saved), nil
}

// SetActive enables or disables account id. A disabled account cannot log in, refresh
// or use a token it already holds.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive != active {
		user.IsActive = active
		user.UpdatedAt = s.nowTime()
		if user, err = s.users.Save(ctx, user); err != nil {
			return nil, autherrors.Wrapf(err, "set active")
		}
		log.Info().Int64("user_id", user.ID).Bool("active", active).Msg("account status changed")
	}
	return newUserResponse(user), nil
}
