package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "wylm-portal/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "")
	}
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitPerIP 每 IP 限速；闲置超过 ttl 的桶会被清理
func RateLimitPerIP(rps rate.Limit, burst int, ttl time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*ipBucket)
		sweep   = time.Now()
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(sweep) > ttl {
			for k, b := range buckets {
				if now.Sub(b.seen) > ttl {
					delete(buckets, k)
				}
			}
			sweep = now
		}
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{lim: rate.NewLimiter(rps, burst)}
			buckets[ip] = b
		}
		b.seen = now
		allowed := b.lim.Allow()
		mu.Unlock()

		if allowed {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "")
	}
}
