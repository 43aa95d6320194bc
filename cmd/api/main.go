package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wylm-portal/internal/app"
	"wylm-portal/internal/core/config"
	"wylm-portal/internal/core/logger"
	"wylm-portal/internal/core/server"
	"wylm-portal/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New(cfg.Log, "logs/api.log")
	defer cleanup()

	// 依赖（数据库 / Redis / 对象存储 / 各模块）
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	// 路由（前台）
	r := router.NewAPIEngine(a.Deps)

	h := cfg.App.HTTP
	srv := server.BuildServer(server.Addr(h.Host, h.Port), r,
		seconds(h.ReadTimeoutSec, 5), seconds(h.WriteTimeoutSec, 15), seconds(h.IdleTimeoutSec, 60))

	base := server.BaseURL(h.Host, h.Port)
	log.Info("user api",
		zap.String("open", base),
		zap.String("health", base+"/health"),
		zap.String("api_v1", base+"/api/v1"),
	)
	if err := server.Serve(srv, log, "user api", 10*time.Second); err != nil {
		log.Error("user api exited", zap.Error(err))
	}
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
