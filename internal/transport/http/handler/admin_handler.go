package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/service"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// AdminHandler 后台：用户、角色权限、种子数据、站点设置
type AdminHandler struct {
	db     *gorm.DB
	users  *service.UserService
	rbac   *service.RBACService
	seeder *service.Seeder
	log    *zap.Logger
}

func NewAdminHandler(db *gorm.DB, users *service.UserService, rbac *service.RBACService, seeder *service.Seeder, l *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, users: users, rbac: rbac, seeder: seeder, log: l}
}

func (h *AdminHandler) Priority() int { return 10 }

type userListQ struct {
	ez.PageQuery
	Q      string `form:"q"` // 按手机号/昵称模糊搜
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE BANNED"`
}

type statusIn struct {
	Status domain.UserStatus `json:"status" binding:"required,oneof=ACTIVE INACTIVE BANNED"`
}

type roleIn struct {
	RoleID string `json:"roleId" binding:"required"`
}

type permIn struct {
	PermissionID string `json:"permissionId" binding:"required"`
}

type settingIn struct {
	Value string `json:"value"`
}

type okOut struct {
	OK bool `json:"ok"`
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.log, h.rbac)

	// --- 用户 ---
	ez.RegisterAction(e, nil, ez.Action[userListQ, ez.PageResult[service.UserView]]{
		Method: http.MethodGet, Path: "/users", Binder: ez.BindQuery, Perm: domain.PermUserManage,
		Handler: func(c *gin.Context, _ *gorm.DB, in *userListQ) (ez.PageResult[service.UserView], error) {
			in.Normalize()
			list, total, err := h.users.List(c.Request.Context(), domain.UserFilter{
				Q: in.Q, Status: domain.UserStatus(in.Status), Offset: in.Offset(), Limit: in.PageSize,
			})
			if err != nil {
				return ez.PageResult[service.UserView]{}, serviceErr(err)
			}
			return ez.NewPage(list, total, in.PageQuery), nil
		},
	})

	ez.RegisterAction(e, nil, ez.Action[statusIn, *service.UserView]{
		Method: http.MethodPut, Path: "/users/:id/status", Binder: ez.BindJSON, Perm: domain.PermUserManage,
		Handler: func(c *gin.Context, _ *gorm.DB, in *statusIn) (*service.UserView, error) {
			ctx, id := c.Request.Context(), c.Param("id")
			if err := h.users.SetStatus(ctx, id, in.Status); err != nil {
				return nil, serviceErr(err)
			}
			h.log.Info("user status changed", zap.String("user_id", id), zap.String("status", string(in.Status)),
				zap.String("by", mdw.UserID(c)))
			v, err := h.users.Get(ctx, id)
			return v, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[roleIn, *service.UserView]{
		Method: http.MethodPost, Path: "/users/:id/roles", Binder: ez.BindJSON, Perm: domain.PermRoleManage,
		Handler: func(c *gin.Context, _ *gorm.DB, in *roleIn) (*service.UserView, error) {
			ctx, id := c.Request.Context(), c.Param("id")
			if err := h.users.AssignRole(ctx, id, in.RoleID); err != nil {
				return nil, serviceErr(err)
			}
			v, err := h.users.Get(ctx, id)
			return v, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, okOut]{
		Method: http.MethodDelete, Path: "/users/:id/roles/:roleId", Binder: ez.BindNone, Perm: domain.PermRoleManage,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (okOut, error) {
			err := h.users.RevokeRole(c.Request.Context(), c.Param("id"), c.Param("roleId"))
			return okOut{OK: err == nil}, serviceErr(err)
		},
	})

	// --- 角色 / 权限 ---
	ez.RegisterAction(e, nil, ez.Action[struct{}, []domain.Role]{
		Method: http.MethodGet, Path: "/roles", Binder: ez.BindNone, Perm: domain.PermRoleManage,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Role, error) {
			roles, err := h.rbac.ListRoles(c.Request.Context())
			return roles, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, []domain.Permission]{
		Method: http.MethodGet, Path: "/permissions", Binder: ez.BindNone, Perm: domain.PermPermissionManage,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Permission, error) {
			perms, err := h.rbac.ListPermissions(c.Request.Context())
			return perms, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[permIn, okOut]{
		Method: http.MethodPost, Path: "/roles/:id/permissions", Binder: ez.BindJSON, Perm: domain.PermPermissionManage,
		Handler: func(c *gin.Context, _ *gorm.DB, in *permIn) (okOut, error) {
			err := h.rbac.GrantPermission(c.Request.Context(), c.Param("id"), in.PermissionID)
			return okOut{OK: err == nil}, serviceErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, okOut]{
		Method: http.MethodDelete, Path: "/roles/:id/permissions/:permissionId", Binder: ez.BindNone, Perm: domain.PermPermissionManage,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (okOut, error) {
			err := h.rbac.RevokePermission(c.Request.Context(), c.Param("id"), c.Param("permissionId"))
			if errors.Is(err, domain.ErrNotFound) {
				return okOut{}, ez.NotFound("role does not have this permission")
			}
			return okOut{OK: err == nil}, serviceErr(err)
		},
	})

	// --- 系统 ---
	ez.RegisterAction(e, nil, ez.Action[struct{}, *service.SeedReport]{
		Method: http.MethodPost, Path: "/seed", Binder: ez.BindNone, Perm: domain.PermSystemConfig,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*service.SeedReport, error) {
			rep, err := h.seeder.Run(c.Request.Context())
			return rep, serviceErr(err)
		},
	})

	ez.RegisterAction(e, h.db, ez.Action[struct{}, []domain.SiteConfig]{
		Method: http.MethodGet, Path: "/settings", Binder: ez.BindNone, Perm: domain.PermSystemConfig,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.SiteConfig, error) {
			var list []domain.SiteConfig
			q := tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "config_group"}}).
				Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}})
			if grp := strings.TrimSpace(c.Query("group")); grp != "" {
				q = q.Where("config_group = ?", grp)
			}
			if err := q.Find(&list).Error; err != nil {
				return nil, ez.Internal("list settings", err)
			}
			return list, nil
		},
	})

	ez.RegisterAction(e, h.db, ez.Action[settingIn, domain.SiteConfig]{
		Method: http.MethodPut, Path: "/settings/:key", Binder: ez.BindJSON, Perm: domain.PermSystemConfig,
		Handler: func(c *gin.Context, tx *gorm.DB, in *settingIn) (domain.SiteConfig, error) {
			var sc domain.SiteConfig
			err := tx.Where(map[string]any{"key": c.Param("key")}).First(&sc).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return sc, ez.NotFound("setting not found")
			}
			if err != nil {
				return sc, ez.Internal("load setting", err)
			}
			if sc.Type == "boolean" && in.Value != "true" && in.Value != "false" {
				return sc, ez.BadRequest("value must be true or false")
			}
			if err := tx.Model(&sc).Update("value", in.Value).Error; err != nil {
				return sc, ez.Internal("update setting", err)
			}
			sc.Value = in.Value
			return sc, nil
		},
	})
}
