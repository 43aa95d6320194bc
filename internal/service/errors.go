package service

import (
	"errors"

	"wylm-portal/internal/core/cache"
	"wylm-portal/pkg/utils"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidCodeFormat  = errors.New("verification code must be 6 digits")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrPhoneRegistered    = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBanned         = errors.New("account has been banned")
	ErrUserInactive       = errors.New("account is not activated")
	ErrPasswordRequired   = errors.New("password is required")
	ErrCodeRequired       = errors.New("verification code is required")
	ErrUnsupportedLogin   = errors.New("unsupported login type")
	ErrUnsupportedPurpose = errors.New("unsupported verification code type")
	ErrSendTooFrequent    = cache.ErrSendTooFrequent

	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrInvalidStatus      = errors.New("invalid status")
)

// IsValidation 输入不合法（400），可以原样返回给客户端
func IsValidation(err error) bool {
	if utils.IsPolicyError(err) {
		return true
	}
	for _, e := range []error{
		ErrMissingFields, ErrInvalidPhone, ErrInvalidCodeFormat, ErrInvalidCode,
		ErrPhoneRegistered, ErrPasswordRequired, ErrCodeRequired,
		ErrUnsupportedLogin, ErrUnsupportedPurpose, ErrInvalidStatus,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
