package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "wylm-portal/internal/transport/http/response"
)

type Options struct {
	Name        string
	Production  bool
	CORSOrigins []string
}

// NewRouter 基础引擎：panic 恢复（zap 记录堆栈，返回统一信封）+ CORS
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, _ any) {
		resp.Abort(c, http.StatusInternalServerError, "")
	}))
	r.Use(cors.New(corsConfig(o.CORSOrigins)))
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "") })
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	cfg.MaxAge = 12 * time.Hour
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       rt,
		ReadHeaderTimeout: rt,
		WriteTimeout:      wt,
		IdleTimeout:       it,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return net.JoinHostPort(host, fmt.Sprint(port)) }

// BaseURL 启动日志里可点击的地址
func BaseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + Addr(host, port)
}

// Serve 启动并阻塞到 SIGINT/SIGTERM，然后在 grace 内优雅关闭
func Serve(srv *http.Server, l *zap.Logger, name string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info(name+" starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen: %w", name, err)
		}
		return nil
	case sig := <-quit:
		l.Info(name+" shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	l.Info(name + " stopped gracefully")
	return nil
}
