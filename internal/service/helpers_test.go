package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"wylm-portal/internal/core/auth"
	"wylm-portal/internal/core/cache"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
	"wylm-portal/internal/testutil"
	"wylm-portal/pkg/utils"
)

const testPassword = "Passw0rd1"

// recordSender 记录最后一次发送的验证码
type recordSender struct {
	mu   sync.Mutex
	last map[string]string
}

func (s *recordSender) SendCode(_ context.Context, phone, purpose, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]string{}
	}
	s.last[purpose+":"+phone] = code
	return nil
}

func (s *recordSender) code(phone, purpose string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[purpose+":"+phone]
}

// acceptAll 任意验证码都通过，用于并发注册
type acceptAll struct{}

func (acceptAll) Put(context.Context, string, string, string, time.Duration) error { return nil }
func (acceptAll) Consume(context.Context, string, string, string) (bool, error)    { return true, nil }

type env struct {
	db     *gorm.DB
	users  *repo.UserRepo
	rbac   *repo.RBACRepo
	rbacS  *RBACService
	hasher *utils.Hasher
	tokens *auth.JWTer
	codes  CodeStore
	sender *recordSender
	auth   *AuthService
}

type envOpt func(*env, *AuthConfig)

func withCodes(c CodeStore) envOpt { return func(e *env, _ *AuthConfig) { e.codes = c } }

func withDefaultRole(r string) envOpt {
	return func(_ *env, c *AuthConfig) { c.DefaultRole = r }
}

func withExposeCode(b bool) envOpt { return func(_ *env, c *AuthConfig) { c.ExposeCode = b } }

func newEnv(t *testing.T, opts ...envOpt) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:     db,
		users:  repo.NewUserRepo(db),
		rbac:   repo.NewRBACRepo(db),
		hasher: utils.NewHasher(bcrypt.MinCost, 4),
		tokens: auth.NewJWTer("test-secret", "wylm-test", time.Hour),
		codes:  cache.NewMemoryCodeStore(0), // 测试默认不限频
		sender: &recordSender{},
	}
	cfg := AuthConfig{CodeTTL: time.Minute, DefaultRole: domain.RoleUser, ExposeCode: true}
	for _, o := range opts {
		o(e, &cfg)
	}
	e.rbacS = NewRBACService(e.rbac, zap.NewNop())
	e.auth = NewAuthService(e.users, e.rbacS, e.hasher, e.tokens, e.codes, e.sender, cfg, zap.NewNop())
	return e
}

func (e *env) seed(t *testing.T) *SeedReport {
	t.Helper()
	rep, err := NewSeeder(e.db, e.rbac, e.users, e.hasher, SeedOptions{}, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rep
}

// register 走完整的发码+注册流程
func (e *env) register(t *testing.T, phone string) *AuthResult {
	t.Helper()
	ctx := context.Background()
	code, err := e.auth.SendCode(ctx, phone, PurposeRegister)
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if code == "" {
		code = e.sender.code(phone, PurposeRegister)
	}
	res, err := e.auth.Register(ctx, RegisterInput{Phone: phone, Password: testPassword, VerificationCode: code})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return res
}
