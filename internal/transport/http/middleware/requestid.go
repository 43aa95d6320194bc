package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"wylm-portal/pkg/utils"
)

const KeyRequestID = "X-Request-ID"

type ridKey struct{}

// RequestID 沿用上游网关传入的 ID；不合法（过长、含空白或控制字符）就重新生成，
// 避免把任意字节写进日志和响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if !validRequestID(rid) {
			rid = utils.NewID()
		}
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ridKey{}, rid))
		c.Header(KeyRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom 从请求 context 取 ID，服务层记日志用
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(ridKey{}).(string)
	return rid
}

func validRequestID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		ok := ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' ||
			ch == '-' || ch == '_' || ch == '.' || ch == ':'
		if !ok {
			return false
		}
	}
	return true
}
