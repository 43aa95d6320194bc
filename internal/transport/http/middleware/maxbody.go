package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "wylm-portal/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；超限的读取错误由处理函数返回 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, http.StatusRequestEntityTooLarge, "")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
