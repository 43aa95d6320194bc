package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrSendTooFrequent 同一手机号在间隔内重复请求验证码
var ErrSendTooFrequent = errors.New("verification code requested too frequently")

func codeKey(phone, purpose string) string { return "auth:code:" + purpose + ":" + phone }

// 相等才删除，保证验证码只能用一次
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCodeStore 验证码存 redis，发送频率用 redis_rate 按手机号限制
type RedisCodeStore struct {
	rdb      *redis.Client
	limiter  *redis_rate.Limiter
	interval time.Duration
}

func NewRedisCodeStore(rdb *redis.Client, interval time.Duration) *RedisCodeStore {
	return &RedisCodeStore{rdb: rdb, limiter: redis_rate.NewLimiter(rdb), interval: interval}
}

func (s *RedisCodeStore) Put(ctx context.Context, phone, purpose, code string, ttl time.Duration) error {
	res, err := s.limiter.Allow(ctx, "auth:send:"+phone, redis_rate.Limit{Rate: 1, Burst: 1, Period: s.interval})
	if err != nil {
		return fmt.Errorf("send-code limiter: %w", err)
	}
	if res.Allowed == 0 {
		return fmt.Errorf("%w: retry after %s", ErrSendTooFrequent, res.RetryAfter.Round(time.Second))
	}
	return s.rdb.Set(ctx, codeKey(phone, purpose), code, ttl).Err()
}

func (s *RedisCodeStore) Consume(ctx context.Context, phone, purpose, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{codeKey(phone, purpose)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type memCode struct {
	code string
	exp  time.Time
}

// MemoryCodeStore 单实例部署/测试用
type MemoryCodeStore struct {
	mu       sync.Mutex
	codes    map[string]memCode
	limiters map[string]*rate.Limiter
	interval time.Duration
}

func NewMemoryCodeStore(interval time.Duration) *MemoryCodeStore {
	return &MemoryCodeStore{
		codes:    make(map[string]memCode),
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

func (s *MemoryCodeStore) Put(_ context.Context, phone, purpose, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.sweep(now)
	if s.interval > 0 {
		lim, ok := s.limiters[phone]
		if !ok {
			lim = rate.NewLimiter(rate.Every(s.interval), 1)
			s.limiters[phone] = lim
		}
		if !lim.AllowN(now, 1) {
			return ErrSendTooFrequent
		}
	}
	s.codes[codeKey(phone, purpose)] = memCode{code: code, exp: now.Add(ttl)}
	return nil
}

// sweep 清掉过期验证码和已回满的限流桶；回满的桶与新建的等价
func (s *MemoryCodeStore) sweep(now time.Time) {
	for k, v := range s.codes {
		if now.After(v.exp) {
			delete(s.codes, k)
		}
	}
	for k, lim := range s.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(s.limiters, k)
		}
	}
}

func (s *MemoryCodeStore) Consume(_ context.Context, phone, purpose, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := codeKey(phone, purpose)
	v, ok := s.codes[k]
	if !ok || time.Now().After(v.exp) || v.code != code {
		return false, nil
	}
	delete(s.codes, k)
	return true, nil
}
