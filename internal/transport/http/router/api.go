package router

import (
	"github.com/gin-gonic/gin"

	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// NewAPIEngine 前台：/api/v1；令牌可选，受保护的动作自己声明 Auth/Perm
func NewAPIEngine(d Deps) *gin.Engine {
	ez.RegisterValidators()
	r := baseEngine(d, "api")
	r.GET("/metrics", gin.WrapH(mdw.MetricsHandler()))

	api := r.Group("/api/v1")
	api.Use(mdw.OptionalAuth(d.JWT))
	d.Modules.MountAllAPI(api)
	return r
}
