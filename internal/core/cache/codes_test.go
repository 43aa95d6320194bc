package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"wylm-portal/internal/core/config"
)

type codeStore interface {
	Put(ctx context.Context, phone, purpose, code string, ttl time.Duration) error
	Consume(ctx context.Context, phone, purpose, code string) (bool, error)
}

func exerciseStore(t *testing.T, s codeStore, phone string) {
	t.Helper()
	ctx := context.Background()

	if err := s.Put(ctx, phone, "register", "123456", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, phone, "login", "654321", time.Minute); !errors.Is(err, ErrSendTooFrequent) {
		t.Fatalf("second Put err = %v, want ErrSendTooFrequent", err)
	}

	if ok, err := s.Consume(ctx, phone, "login", "123456"); err != nil || ok {
		t.Fatalf("Consume other purpose = %v, %v", ok, err)
	}
	if ok, err := s.Consume(ctx, phone, "register", "000000"); err != nil || ok {
		t.Fatalf("Consume wrong code = %v, %v", ok, err)
	}
	if ok, err := s.Consume(ctx, phone, "register", "123456"); err != nil || !ok {
		t.Fatalf("Consume = %v, %v, want true", ok, err)
	}
	if ok, _ := s.Consume(ctx, phone, "register", "123456"); ok {
		t.Fatal("code must be single-use")
	}
}

func TestMemoryCodeStore(t *testing.T) {
	exerciseStore(t, NewMemoryCodeStore(time.Minute), "13900000001")
}

func TestMemoryCodeStoreExpiry(t *testing.T) {
	s := NewMemoryCodeStore(time.Millisecond)
	ctx := context.Background()
	if err := s.Put(ctx, "13900000002", "login", "111111", 10*time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _ := s.Consume(ctx, "13900000002", "login", "111111"); ok {
		t.Fatal("expired code must not be accepted")
	}
	// 间隔已过，可以再次发送
	if err := s.Put(ctx, "13900000002", "login", "222222", time.Minute); err != nil {
		t.Fatalf("Put after interval: %v", err)
	}
}

func TestMemoryCodeStoreForgetsIdlePhones(t *testing.T) {
	s := NewMemoryCodeStore(20 * time.Millisecond)
	ctx := context.Background()
	if err := s.Put(ctx, "13900000000", "login", "111111", 5*time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "13900000000", "login", "111111", 5*time.Millisecond); !errors.Is(err, ErrSendTooFrequent) {
		t.Fatalf("resend within interval err = %v", err)
	}
	for i := 1; i < 50; i++ {
		if err := s.Put(ctx, fmt.Sprintf("139%08d", i), "login", "111111", 5*time.Millisecond); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	time.Sleep(60 * time.Millisecond)
	if err := s.Put(ctx, "13800000000", "login", "222222", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.mu.Lock()
	limiters, codes := len(s.limiters), len(s.codes)
	s.mu.Unlock()
	if limiters != 1 || codes != 1 {
		t.Fatalf("limiters = %d codes = %d, want 1 and 1", limiters, codes)
	}
}

// 需要真实 redis：REDIS_ADDR=127.0.0.1:6379 go test ./internal/core/cache/
func TestRedisCodeStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := NewRedis(config.Redis{Addr: addr})
	defer rdb.Close()
	if err := Ping(context.Background(), rdb); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	phone := fmt.Sprintf("139%08d", time.Now().UnixNano()%1e8)
	exerciseStore(t, NewRedisCodeStore(rdb, time.Minute), phone)
}
