package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/service"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// AuthHandler /auth/* 与 /me
type AuthHandler struct {
	auth *service.AuthService
	rbac *service.RBACService
	log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, r *service.RBACService, l *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: a, rbac: r, log: l}
}

func (h *AuthHandler) Priority() int { return 10 }

type sendCodeIn struct {
	Phone string `json:"phone"`
	Type  string `json:"type"`
}

type sendCodeOut struct {
	Code string `json:"code,omitempty"`
}

type permissionsOut struct {
	Permissions []string `json:"permissions"`
}

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.log, h.rbac)

	ez.RegisterAction(e, nil, ez.Action[service.RegisterInput, *service.AuthResult]{
		Method: http.MethodPost, Path: "/auth/register", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "registered",
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.RegisterInput) (*service.AuthResult, error) {
			res, err := h.auth.Register(c.Request.Context(), *in)
			return res, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[service.LoginInput, *service.AuthResult]{
		Method: http.MethodPost, Path: "/auth/login", Binder: ez.BindJSON, Message: "logged in",
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.LoginInput) (*service.AuthResult, error) {
			res, err := h.auth.Login(c.Request.Context(), *in)
			return res, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[sendCodeIn, sendCodeOut]{
		Method: http.MethodPost, Path: "/auth/send-code", Binder: ez.BindJSON, Message: "verification code sent",
		Handler: func(c *gin.Context, _ *gorm.DB, in *sendCodeIn) (sendCodeOut, error) {
			code, err := h.auth.SendCode(c.Request.Context(), in.Phone, in.Type)
			return sendCodeOut{Code: code}, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, *service.UserView]{
		Method: http.MethodGet, Path: "/me", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*service.UserView, error) {
			v, err := h.auth.Me(c.Request.Context(), mdw.UserID(c))
			return v, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, permissionsOut]{
		Method: http.MethodGet, Path: "/me/permissions", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (permissionsOut, error) {
			codes, err := h.rbac.PermissionCodes(c.Request.Context(), mdw.UserID(c))
			return permissionsOut{Permissions: codes}, serviceErr(err)
		},
	})
}
