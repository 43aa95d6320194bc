package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"wylm-portal/internal/domain"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// Perms 假授权：用户 ID -> 拥有的权限码
type Perms map[string][]string

func (p Perms) HasPermission(_ context.Context, uid, code string) (bool, error) {
	return slices.Contains(p[uid], code), nil
}

// AsUser 用 X-User 头模拟已登录用户，省去签发 token
func AsUser(c *gin.Context) {
	if uid := c.GetHeader("X-User"); uid != "" {
		c.Set(mdw.CtxUserID, uid)
	}
	c.Next()
}

// Engine 测试引擎；mount 里挂模块路由
func Engine(mount func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AsUser)
	mount(r)
	return r
}

type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// Do 发一个 JSON 请求；body 为 string 时原样发送，其余按 JSON 编码
func Do(t testing.TB, h http.Handler, method, path, uid string, body any) (int, Envelope) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-User", uid)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

// Data 解出信封里的 data
func Data[T any](t testing.TB, env Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

// NewUser 直接落库一个用户，ID 固定便于断言
func NewUser(t testing.TB, db *gorm.DB, id, phone, nickname string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Phone: phone, PasswordHash: "x", Nickname: nickname, Status: domain.UserActive}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
