// Package ez 轻封装：把 (any, error) 风格的处理函数挂到 gin 上，统一信封和错误映射
package ez

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mdw "wylm-portal/internal/transport/http/middleware"
	resp "wylm-portal/internal/transport/http/response"
)

type EZ struct {
	g     *gin.RouterGroup
	log   *zap.Logger
	authz mdw.Authorizer
}

// New authz 为 nil 时带 Perm 的动作一律 403
func New(g *gin.RouterGroup, l *zap.Logger, authz mdw.Authorizer) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l, authz: authz}
}

// POSTFILES 处理 multipart/form-data 多文件上传；perm 为空表示只要求登录
func (e EZ) POSTFILES(path, fieldName, perm string, h func(c *gin.Context, files []*multipart.FileHeader) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		if !e.guard(c, true, perm) {
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			e.fail(c, bindError(err))
			return
		}
		files := form.File[fieldName]
		if len(files) == 0 {
			e.fail(c, BadRequest("no files uploaded"))
			return
		}

		data, err := h(c, files)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp.OK(data))
	})
}

// guard 登录 + 权限；失败时已写响应
func (e EZ) guard(c *gin.Context, needLogin bool, perm string) bool {
	if !needLogin && perm == "" {
		return true
	}
	uid := c.GetString(mdw.CtxUserID)
	if uid == "" {
		e.fail(c, Unauthorized(""))
		return false
	}
	if perm == "" {
		return true
	}
	if e.authz == nil {
		e.fail(c, Forbidden(""))
		return false
	}
	ok, err := e.authz.HasPermission(c.Request.Context(), uid, perm)
	if err != nil {
		e.fail(c, Internal("permission check failed", err))
		return false
	}
	if !ok {
		e.fail(c, Forbidden(""))
		return false
	}
	return true
}
