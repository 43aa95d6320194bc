package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wylm-portal/internal/core/auth"
	resp "wylm-portal/internal/transport/http/response"
)

const (
	CtxUserID = "userId"
	CtxClaims = "claims"
)

// Authorizer 按权限码判定，RBACService 实现
type Authorizer interface {
	HasPermission(ctx context.Context, userID, code string) (bool, error)
}

func bearer(c *gin.Context) string {
	ah := c.GetHeader("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

// AuthJWT 必须登录；令牌缺失/过期/篡改统一 401，不区分原因
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			resp.Abort(c, http.StatusUnauthorized, "")
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "")
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxClaims, claims)
		c.Next()
	}
}

// OptionalAuth 有合法令牌就带上身份，没有或无效都放行
func OptionalAuth(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := bearer(c); tok != "" {
			if claims, err := j.Parse(tok); err == nil {
				c.Set(CtxUserID, claims.UserID)
				c.Set(CtxClaims, claims)
			}
		}
		c.Next()
	}
}

// RequirePermission 分组级权限校验，需在 AuthJWT/OptionalAuth 之后
func RequirePermission(authz Authorizer, l *zap.Logger, code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" {
			resp.Abort(c, http.StatusUnauthorized, "")
			return
		}
		ok, err := authz.HasPermission(c.Request.Context(), uid, code)
		if err != nil {
			l.Error("permission check failed", zap.String("perm", code), zap.Error(err))
			resp.Abort(c, http.StatusInternalServerError, "")
			return
		}
		if !ok {
			resp.Abort(c, http.StatusForbidden, "")
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(CtxUserID) }

func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(CtxClaims); ok {
		if cl, ok := v.(*auth.Claims); ok {
			return cl
		}
	}
	return nil
}
