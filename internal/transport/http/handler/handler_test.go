package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wylm-portal/internal/core/auth"
	"wylm-portal/internal/core/cache"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
	"wylm-portal/internal/service"
	"wylm-portal/internal/testutil"
	"wylm-portal/internal/transport/http/router"
	"wylm-portal/pkg/utils"
)

const (
	adminPhone    = "13900000000"
	adminPassword = "Admin12345"
	userPassword  = "Passw0rd1"
)

func init() { gin.SetMode(gin.TestMode) }

type lastCode struct{ codes map[string]string }

func (s *lastCode) SendCode(_ context.Context, phone, purpose, code string) error {
	s.codes[purpose+":"+phone] = code
	return nil
}

type stack struct {
	api, admin http.Handler
	sent       *lastCode
}

func newStack(t *testing.T, interval time.Duration, exposeCode bool) *stack {
	t.Helper()
	db := testutil.NewDB(t)
	l := zap.NewNop()
	users := repo.NewUserRepo(db)
	rbacRepo := repo.NewRBACRepo(db)
	rbac := service.NewRBACService(rbacRepo, l)
	hasher := utils.NewHasher(bcrypt.MinCost, 4)
	jwter := auth.NewJWTer("handler-secret", "wylm-test", time.Hour)

	seeder := service.NewSeeder(db, rbacRepo, users, hasher, service.SeedOptions{
		AdminPhone: adminPhone, AdminPassword: adminPassword,
	}, l)
	if _, err := seeder.Run(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sent := &lastCode{codes: map[string]string{}}
	authSvc := service.NewAuthService(users, rbac, hasher, jwter, cache.NewMemoryCodeStore(interval), sent,
		service.AuthConfig{CodeTTL: time.Minute, DefaultRole: domain.RoleUser, ExposeCode: exposeCode}, l)

	d := router.Deps{
		Log:   l,
		DB:    db,
		JWT:   jwter,
		Authz: rbac,
		Modules: router.NewRegistry(
			NewAuthHandler(authSvc, rbac, l),
			NewAdminHandler(db, service.NewUserService(users, rbacRepo), rbac, seeder, l),
		),
	}
	return &stack{api: router.NewAPIEngine(d), admin: router.NewAdminEngine(d), sent: sent}
}

// call 带 Bearer 令牌的 JSON 请求
func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, testutil.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env testutil.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

func (s *stack) login(t *testing.T, phone, password string) service.AuthResult {
	t.Helper()
	status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"phone": phone, "password": password, "loginType": "password"})
	if status != http.StatusOK {
		t.Fatalf("login %s: %d %+v", phone, status, env)
	}
	return testutil.Data[service.AuthResult](t, env)
}

func (s *stack) register(t *testing.T, phone string) service.AuthResult {
	t.Helper()
	if status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/send-code", "", gin.H{"phone": phone, "type": "register"}); status != http.StatusOK {
		t.Fatalf("send-code: %d %+v", status, env)
	}
	status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"phone": phone, "password": userPassword, "verificationCode": s.sent.codes["register:"+phone],
	})
	if status != http.StatusCreated {
		t.Fatalf("register: %d %+v", status, env)
	}
	return testutil.Data[service.AuthResult](t, env)
}

func TestAuthEndpoints(t *testing.T) {
	s := newStack(t, 0, true)
	reg := s.register(t, "13800138000")
	if reg.Token == "" || len(reg.User.Roles) != 1 || reg.User.Roles[0] != domain.RoleUser {
		t.Fatalf("register result = %+v", reg)
	}

	tests := []struct {
		name   string
		path   string
		body   gin.H
		status int
		errMsg string
	}{
		{"wrong code", "/api/v1/auth/register",
			gin.H{"phone": "13800138000", "password": userPassword, "verificationCode": "000000"},
			http.StatusBadRequest, "invalid or expired verification code"},
		{"bad phone", "/api/v1/auth/register",
			gin.H{"phone": "12345", "password": userPassword, "verificationCode": "123456"},
			http.StatusBadRequest, "invalid phone number"},
		{"weak password", "/api/v1/auth/register",
			gin.H{"phone": "13800138001", "password": "password1", "verificationCode": "123456"},
			http.StatusBadRequest, "password must contain an uppercase letter"},
		{"wrong password", "/api/v1/auth/login",
			gin.H{"phone": "13800138000", "password": "Wrong0pass", "loginType": "password"},
			http.StatusUnauthorized, "invalid credentials"},
		{"unknown phone", "/api/v1/auth/login",
			gin.H{"phone": "13800138999", "password": "Wrong0pass", "loginType": "password"},
			http.StatusUnauthorized, "invalid credentials"},
		{"bad login type", "/api/v1/auth/login",
			gin.H{"phone": "13800138000", "loginType": "wechat"},
			http.StatusBadRequest, "unsupported login type"},
		{"bad code purpose", "/api/v1/auth/send-code",
			gin.H{"phone": "13800138000", "type": "reset"},
			http.StatusBadRequest, "unsupported verification code type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, s.api, http.MethodPost, tt.path, "", tt.body)
			if status != tt.status || env.Error != tt.errMsg || env.Success {
				t.Fatalf("got %d %q, want %d %q", status, env.Error, tt.status, tt.errMsg)
			}
		})
	}

	// 重复注册：拿到新的有效验证码后仍因手机号已存在被拒
	call(t, s.api, http.MethodPost, "/api/v1/auth/send-code", "", gin.H{"phone": "13800138000", "type": "register"})
	status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"phone": "13800138000", "password": userPassword, "verificationCode": s.sent.codes["register:13800138000"],
	})
	if status != http.StatusBadRequest || env.Error != "phone already registered" {
		t.Fatalf("duplicate register = %d %q", status, env.Error)
	}

	if status, _ := call(t, s.api, http.MethodGet, "/api/v1/me", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous /me = %d", status)
	}
	status, env = call(t, s.api, http.MethodGet, "/api/v1/me/permissions", reg.Token, nil)
	perms := testutil.Data[permissionsOut](t, env)
	if status != http.StatusOK || len(perms.Permissions) == 0 {
		t.Errorf("/me/permissions = %d %+v", status, perms)
	}
}

func TestSendCodeResponse(t *testing.T) {
	t.Run("throttled", func(t *testing.T) {
		s := newStack(t, time.Minute, true)
		body := gin.H{"phone": "13800138000", "type": "login"}
		status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/send-code", "", body)
		if out := testutil.Data[sendCodeOut](t, env); status != http.StatusOK || len(out.Code) != 6 {
			t.Fatalf("first send = %d %+v", status, out)
		}
		status, env = call(t, s.api, http.MethodPost, "/api/v1/auth/send-code", "", body)
		if status != http.StatusTooManyRequests || env.Error != service.ErrSendTooFrequent.Error() {
			t.Fatalf("second send = %d %q", status, env.Error)
		}
	})

	t.Run("code hidden", func(t *testing.T) {
		s := newStack(t, 0, false)
		status, env := call(t, s.api, http.MethodPost, "/api/v1/auth/send-code", "", gin.H{"phone": "13800138000", "type": "login"})
		if status != http.StatusOK {
			t.Fatalf("send = %d", status)
		}
		var raw map[string]any
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			t.Fatal(err)
		}
		if _, ok := raw["code"]; ok {
			t.Errorf("code leaked: %s", env.Data)
		}
		if s.sent.codes["login:13800138000"] == "" {
			t.Error("code not delivered")
		}
	})
}

func TestAdminUsers(t *testing.T) {
	s := newStack(t, 0, true)
	admin := s.login(t, adminPhone, adminPassword)
	member := s.register(t, "13800138000")

	if status, _ := call(t, s.admin, http.MethodGet, "/admin/v1/users", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", status)
	}
	if status, _ := call(t, s.admin, http.MethodGet, "/admin/v1/users", member.Token, nil); status != http.StatusForbidden {
		t.Errorf("member = %d", status)
	}

	status, env := call(t, s.admin, http.MethodGet, "/admin/v1/users?q=138001", admin.Token, nil)
	page := testutil.Data[struct {
		Data       []service.UserView `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}](t, env)
	if status != http.StatusOK || page.Pagination.Total != 1 || page.Data[0].ID != member.User.ID {
		t.Fatalf("users = %d %+v", status, page)
	}

	path := "/admin/v1/users/" + member.User.ID + "/status"
	status, env = call(t, s.admin, http.MethodPut, path, admin.Token, gin.H{"status": "BANNED"})
	if v := testutil.Data[service.UserView](t, env); status != http.StatusOK || v.Status != domain.UserBanned {
		t.Fatalf("ban = %d %+v", status, v)
	}
	status, env = call(t, s.api, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"phone": "13800138000", "password": userPassword, "loginType": "password"})
	if status != http.StatusForbidden || env.Error != "account has been banned" {
		t.Fatalf("banned login = %d %q", status, env.Error)
	}

	if status, _ := call(t, s.admin, http.MethodPut, path, admin.Token, gin.H{"status": "DELETED"}); status != http.StatusBadRequest {
		t.Errorf("bad status = %d", status)
	}
	if status, _ := call(t, s.admin, http.MethodPut, "/admin/v1/users/nope/status", admin.Token, gin.H{"status": "ACTIVE"}); status != http.StatusNotFound {
		t.Errorf("missing user = %d", status)
	}
}

func TestAdminRolePermissions(t *testing.T) {
	s := newStack(t, 0, true)
	admin := s.login(t, adminPhone, adminPassword)

	_, env := call(t, s.admin, http.MethodGet, "/admin/v1/roles", admin.Token, nil)
	var guestID string
	for _, r := range testutil.Data[[]domain.Role](t, env) {
		if r.Name == domain.RoleGuest {
			guestID = r.ID
		}
	}
	_, env = call(t, s.admin, http.MethodGet, "/admin/v1/permissions", admin.Token, nil)
	var permID string
	for _, p := range testutil.Data[[]domain.Permission](t, env) {
		if p.Code == domain.PermPostCreate {
			permID = p.ID
		}
	}
	if guestID == "" || permID == "" {
		t.Fatalf("guest=%q perm=%q", guestID, permID)
	}

	grant := "/admin/v1/roles/" + guestID + "/permissions"
	if status, env := call(t, s.admin, http.MethodPost, grant, admin.Token, gin.H{"permissionId": permID}); status != http.StatusOK {
		t.Fatalf("grant = %d %+v", status, env)
	}
	if status, env := call(t, s.admin, http.MethodPost, "/admin/v1/roles/nope/permissions", admin.Token, gin.H{"permissionId": permID}); status != http.StatusNotFound || env.Error != "role not found" {
		t.Errorf("missing role = %d %q", status, env.Error)
	}
	if status, env := call(t, s.admin, http.MethodPost, grant, admin.Token, gin.H{"permissionId": "nope"}); status != http.StatusNotFound || env.Error != "permission not found" {
		t.Errorf("missing permission = %d %q", status, env.Error)
	}

	revoke := grant + "/" + permID
	if status, _ := call(t, s.admin, http.MethodDelete, revoke, admin.Token, nil); status != http.StatusOK {
		t.Fatalf("revoke = %d", status)
	}
	if status, _ := call(t, s.admin, http.MethodDelete, revoke, admin.Token, nil); status != http.StatusNotFound {
		t.Errorf("revoke twice = %d", status)
	}
}

func TestAdminSystem(t *testing.T) {
	s := newStack(t, 0, true)
	admin := s.login(t, adminPhone, adminPassword)

	status, env := call(t, s.admin, http.MethodPost, "/admin/v1/seed", admin.Token, nil)
	if rep := testutil.Data[service.SeedReport](t, env); status != http.StatusOK || rep.AdminUser {
		t.Fatalf("reseed = %d %+v", status, rep)
	}

	status, env = call(t, s.admin, http.MethodGet, "/admin/v1/settings?group=features", admin.Token, nil)
	if list := testutil.Data[[]domain.SiteConfig](t, env); status != http.StatusOK || len(list) != 3 {
		t.Fatalf("settings = %d %+v", status, list)
	}

	tests := []struct {
		key, value string
		status     int
	}{
		{"enable_comments", "maybe", http.StatusBadRequest},
		{"enable_comments", "false", http.StatusOK},
		{"site_name", "WYLM Studio", http.StatusOK},
		{"missing_key", "x", http.StatusNotFound},
	}
	for _, tt := range tests {
		status, env := call(t, s.admin, http.MethodPut, "/admin/v1/settings/"+tt.key, admin.Token, gin.H{"value": tt.value})
		if status != tt.status {
			t.Fatalf("%s=%s: %d %+v", tt.key, tt.value, status, env)
		}
		if status == http.StatusOK {
			if sc := testutil.Data[domain.SiteConfig](t, env); sc.Value != tt.value {
				t.Errorf("%s = %q", tt.key, sc.Value)
			}
		}
	}
}
