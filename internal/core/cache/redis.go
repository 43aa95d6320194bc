package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"wylm-portal/internal/core/config"
)

// NewRedis 未配置地址时返回 nil，调用方退回内存实现
func NewRedis(c config.Redis) *redis.Client {
	if c.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func Ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
