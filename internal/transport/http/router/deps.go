package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"wylm-portal/internal/core/auth"
	"wylm-portal/internal/core/server"
	"wylm-portal/internal/core/storage"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// Deps 两个引擎共用的依赖；Redis / Storage 可为 nil
type Deps struct {
	Log     *zap.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Storage *storage.ObjectStore
	JWT     *auth.JWTer
	Authz   mdw.Authorizer
	Modules *Registry
	Server  server.Options
}

// baseEngine 公共中间件链 + /health
func baseEngine(d Deps, name string) *gin.Engine {
	r := server.NewRouter(d.Log, d.Server)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.RateLimitPerIP(rate.Limit(20), 40, 10*time.Minute),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(name),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", health(d))
	return r
}
