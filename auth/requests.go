package auth

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"fullName" validate:"required,max=200"`
}

// Validate checks field shape and password strength. The password limit is in bytes.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	if err := validateStruct(r); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (r *RefreshRequest) Validate() error {
	return validateStruct(r)
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ResendVerificationRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if autherrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "%s failed %q", strings.ToLower(fe.Field()), fe.Tag())
	}
	return autherrors.Wrapf(autherrors.ErrInvalidRequest, "%v", err)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type ResetPasswordRequest struct {
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (r *ResetPasswordRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if err := validateStruct(r); err != nil {
		return err
	}
	return validatePassword(r.NewPassword)
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

func (r *ChangePasswordRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	return validatePassword(r.NewPassword)
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Avatar   string `json:"avatar" validate:"omitempty,url,max=2048"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Avatar = strings.TrimSpace(r.Avatar)
	return validateStruct(r)
}

// UpdateRolesRequest replaces an account's roles. Names may omit the ROLE_ prefix.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,max=8"`
}

// Validate normalizes the role names and drops duplicates, keeping the first occurrence.
func (r *UpdateRolesRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	roles := make([]string, 0, len(r.Roles))
	for _, name := range r.Roles {
		role, err := users.NormalizeRole(name)
		if err != nil {
			return err
		}
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	r.Roles = roles
	return nil
}

func validatePassword(password string) error {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "%v", err)
	}
	return nil
}
