package handler

import (
	"errors"

	"wylm-portal/internal/service"
	"wylm-portal/internal/transport/http/ez"
)

// serviceErr 把 service 层哨兵错误映射到 HTTP 语义；其他错误按 500 处理
func serviceErr(err error) error {
	switch {
	case err == nil:
		return nil
	case service.IsValidation(err):
		return ez.BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return ez.Unauthorized(err.Error())
	case errors.Is(err, service.ErrUserBanned), errors.Is(err, service.ErrUserInactive):
		return ez.Forbidden(err.Error())
	case errors.Is(err, service.ErrSendTooFrequent):
		return ez.TooManyRequests(service.ErrSendTooFrequent.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrPermissionNotFound):
		return ez.NotFound(err.Error())
	}
	return ez.Internal("service error", err)
}
