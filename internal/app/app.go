// Package app 组装依赖：数据库、缓存、存储、服务与各业务模块，两个进程共用
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wylm-portal/internal/core/auth"
	"wylm-portal/internal/core/cache"
	"wylm-portal/internal/core/config"
	"wylm-portal/internal/core/database"
	"wylm-portal/internal/core/server"
	"wylm-portal/internal/core/sms"
	"wylm-portal/internal/core/storage"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/feature/blog"
	"wylm-portal/internal/feature/comment"
	"wylm-portal/internal/feature/gallery"
	"wylm-portal/internal/feature/like"
	"wylm-portal/internal/feature/product"
	"wylm-portal/internal/repo"
	"wylm-portal/internal/service"
	"wylm-portal/internal/transport/http/handler"
	"wylm-portal/internal/transport/http/router"
	"wylm-portal/pkg/utils"
)

type App struct {
	Deps    router.Deps
	closers []func() error
}

// New 连接外部依赖并按配置迁移、初始化数据；失败时已打开的连接会被关闭
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if sqlDB, e := db.DB(); e == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err = db.AutoMigrate(domain.Models()...); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	var rdb *redis.Client
	if rdb = cache.NewRedis(cfg.Redis); rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		if err = cache.Ping(ctx, rdb); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}
	interval := time.Duration(cfg.Auth.CodeIntervalSec) * time.Second
	var codes service.CodeStore
	if rdb != nil {
		codes = cache.NewRedisCodeStore(rdb, interval)
	} else {
		l.Warn("redis not configured, verification codes kept in process memory")
		codes = cache.NewMemoryCodeStore(interval)
	}

	var store *storage.ObjectStore
	if cfg.Storage.Enabled() {
		if store, err = storage.NewMinio(ctx, cfg.Storage); err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		l.Info("object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	}

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	hasher := utils.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashParallel)
	users := repo.NewUserRepo(db)
	rbacRepo := repo.NewRBACRepo(db)
	rbac := service.NewRBACService(rbacRepo, l)

	seeder := service.NewSeeder(db, rbacRepo, users, hasher, service.SeedOptions{
		AdminPhone:    cfg.Seed.AdminPhone,
		AdminPassword: cfg.Seed.AdminPassword,
	}, l)
	if cfg.DB.Seed {
		if _, err = seeder.Run(ctx); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	authSvc := service.NewAuthService(users, rbac, hasher, jwter, codes,
		sms.NewLogSender(l, !cfg.App.IsProduction()),
		service.AuthConfig{
			CodeTTL:     time.Duration(cfg.Auth.CodeTTLSec) * time.Second,
			DefaultRole: cfg.Auth.DefaultRole,
			ExposeCode:  cfg.Auth.ExposeCode,
		}, l)

	// 注意不要把 nil 的 *ObjectStore 塞进接口
	var uploader gallery.Uploader
	if store != nil {
		uploader = store
	}

	a.Deps = router.Deps{
		Log:     l,
		DB:      db,
		Redis:   rdb,
		Storage: store,
		JWT:     jwter,
		Authz:   rbac,
		Modules: router.NewRegistry(
			handler.NewAuthHandler(authSvc, rbac, l),
			handler.NewAdminHandler(db, service.NewUserService(users, rbacRepo), rbac, seeder, l),
			blog.New(db, rbac, l),
			gallery.New(db, rbac, uploader, l),
			product.New(db, rbac, l),
			comment.New(comment.NewService(db, cfg.Comment.RequireAudit), rbac, l),
			like.New(like.NewService(db), rbac, l),
		),
		Server: server.Options{
			Name:        cfg.App.Name,
			Production:  cfg.App.IsProduction(),
			CORSOrigins: cfg.App.CORSOrigins,
		},
	}
	return a, nil
}

// Close 逆序关闭
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
