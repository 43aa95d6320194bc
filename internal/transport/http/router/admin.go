package router

import (
	"github.com/gin-gonic/gin"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// NewAdminEngine 后台：/admin/v1 整组要求登录，具体权限由各动作的 Perm 决定
func NewAdminEngine(d Deps) *gin.Engine {
	ez.RegisterValidators()
	r := baseEngine(d, "admin")

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT))
	// 后台的指标只给系统管理员看
	admin.GET("/metrics", mdw.RequirePermission(d.Authz, d.Log, domain.PermSystemConfig), gin.WrapH(mdw.MetricsHandler()))
	d.Modules.MountAllAdmin(admin)
	return r
}
