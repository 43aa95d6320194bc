package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wylm-portal/internal/core/cache"
	"wylm-portal/internal/core/database"
	resp "wylm-portal/internal/transport/http/response"
)

type healthOut struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// health DB 必检，redis / 对象存储配置了才检；任一失败 503
func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		out := healthOut{Status: "ok", Checks: map[string]string{}, Timestamp: time.Now().UTC()}
		check := func(name string, err error) {
			if err != nil {
				out.Status = "degraded"
				out.Checks[name] = "down"
				_ = c.Error(err)
				return
			}
			out.Checks[name] = "up"
		}
		check("database", database.Ping(ctx, d.DB))
		if d.Redis != nil {
			check("redis", cache.Ping(ctx, d.Redis))
		}
		if d.Storage != nil {
			check("storage", d.Storage.Ping(ctx))
		}

		if out.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, resp.Resp{
				Success: false, Data: out, Error: "service unavailable", Code: resp.CodeUnavailable,
			})
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}
}
