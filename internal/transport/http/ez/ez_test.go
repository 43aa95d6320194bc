package ez

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/testutil"
	mdw "wylm-portal/internal/transport/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

type allow map[string]bool

func (a allow) HasPermission(_ context.Context, uid, code string) (bool, error) {
	return a[uid+"|"+code], nil
}

// asUser 测试里用 X-User 头模拟已登录用户
func asUser(c *gin.Context) {
	if uid := c.GetHeader("X-User"); uid != "" {
		c.Set(mdw.CtxUserID, uid)
	}
	c.Next()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func call(t *testing.T, r http.Handler, method, path, uid, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-User", uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

type slugIn struct {
	Name  string `json:"name" binding:"required,max=8"`
	Slug  string `json:"slug" binding:"required,slug"`
	Phone string `json:"phone" binding:"omitempty,mobile"`
}

func TestRegisterAction(t *testing.T) {
	r := gin.New()
	r.Use(asUser)
	e := New(r.Group(""), zap.NewNop(), allow{"u1|tag:manage": true})

	RegisterAction(e, nil, Action[slugIn, gin.H]{
		Method: http.MethodPost, Path: "/tags", Binder: BindJSON, Perm: "tag:manage", Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *slugIn) (gin.H, error) {
			if in.Slug == "taken" {
				return nil, BadRequest("slug already exists")
			}
			if in.Slug == "boom" {
				return nil, errors.New("dial tcp: connection refused")
			}
			return gin.H{"slug": in.Slug}, nil
		},
	})

	tests := []struct {
		name, uid, body string
		status          int
		errMsg          string
	}{
		{"anonymous", "", `{"name":"go","slug":"go"}`, http.StatusUnauthorized, "unauthorized"},
		{"no permission", "u2", `{"name":"go","slug":"go"}`, http.StatusForbidden, "insufficient permissions"},
		{"empty body", "u1", ``, http.StatusBadRequest, "request body is empty"},
		{"malformed", "u1", `{"name":`, http.StatusBadRequest, "malformed JSON body"},
		{"validation", "u1", `{"name":"toolongname","slug":"Bad Slug"}`, http.StatusBadRequest,
			"name must be at most 8 characters; slug may only contain lowercase letters, digits and hyphens"},
		{"mobile", "u1", `{"name":"go","slug":"go","phone":"123"}`, http.StatusBadRequest, "invalid phone number"},
		{"business error", "u1", `{"name":"go","slug":"taken"}`, http.StatusBadRequest, "slug already exists"},
		{"internal hidden", "u1", `{"name":"go","slug":"boom"}`, http.StatusInternalServerError, "internal server error"},
		{"ok", "u1", `{"name":"go","slug":"go-lang"}`, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, r, http.MethodPost, "/tags", tt.uid, tt.body)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%+v)", status, tt.status, env)
			}
			if env.Success != (tt.errMsg == "") || env.Error != tt.errMsg {
				t.Errorf("env = %+v", env)
			}
		})
	}
}

func TestPageQuery(t *testing.T) {
	p := PageQuery{Page: 0, PageSize: 500}
	p.Normalize()
	if p.Page != 1 || p.PageSize != MaxPageSize || p.Offset() != 0 {
		t.Fatalf("normalized = %+v", p)
	}
	res := NewPage[int](nil, 201, p)
	if res.Pagination.TotalPages != 3 || res.Data == nil {
		t.Errorf("page = %+v", res)
	}

	huge := PageQuery{Page: math.MaxInt, PageSize: 50}
	huge.Normalize()
	if huge.Page != MaxPage || huge.Offset() != (MaxPage-1)*50 {
		t.Errorf("huge page = %+v offset %d", huge, huge.Offset())
	}
}

func TestToSnake(t *testing.T) {
	for in, want := range map[string]string{"ID": "id", "OwnerID": "owner_id", "UserID": "user_id", "CreatedAt": "created_at"} {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCrudAlbums(t *testing.T) {
	db := testutil.NewDB(t)
	r := gin.New()
	r.Use(asUser)
	e := New(r.Group(""), zap.NewNop(), allow{"u1|album:manage": true, "u2|album:manage": true})
	Crud(CrudConfig[domain.Album]{
		EZ: e, DB: db, Path: "/albums", New: func() *domain.Album { return &domain.Album{} },
		Perm: domain.PermAlbumManage, OrderBy: "created_at DESC",
	})

	if status, _ := call(t, r, http.MethodPost, "/albums", "u3", `{"title":"x"}`); status != http.StatusForbidden {
		t.Fatalf("no permission status = %d", status)
	}
	if status, env := call(t, r, http.MethodPost, "/albums", "u1", `{"description":"no title"}`); status != http.StatusBadRequest || env.Error != "title is required" {
		t.Fatalf("missing title: %d %+v", status, env)
	}

	status, env := call(t, r, http.MethodPost, "/albums", "u1", `{"id":"forged","ownerId":"u2","title":"Trip","isPublic":true}`)
	if status != http.StatusCreated {
		t.Fatalf("create: %d %+v", status, env)
	}
	var a domain.Album
	_ = json.Unmarshal(env.Data, &a)
	if a.ID == "forged" || a.OwnerID != "u1" || a.Title != "Trip" {
		t.Fatalf("created = %+v", a)
	}

	// 其他人看不到也改不了
	if status, _ := call(t, r, http.MethodGet, "/albums/"+a.ID, "u2", ""); status != http.StatusNotFound {
		t.Errorf("foreign get = %d", status)
	}
	if status, _ := call(t, r, http.MethodDelete, "/albums/"+a.ID, "u2", ""); status != http.StatusNotFound {
		t.Errorf("foreign delete = %d", status)
	}

	status, env = call(t, r, http.MethodPut, "/albums/"+a.ID, "u1", `{"title":"Trip 2","isPublic":false}`)
	if status != http.StatusOK {
		t.Fatalf("update: %d %+v", status, env)
	}
	var upd domain.Album
	_ = json.Unmarshal(env.Data, &upd)
	if upd.Title != "Trip 2" || upd.IsPublic || upd.OwnerID != "u1" {
		t.Errorf("updated = %+v", upd)
	}

	status, env = call(t, r, http.MethodGet, "/albums?page=1&pageSize=10", "u1", "")
	var page PageResult[domain.Album]
	_ = json.Unmarshal(env.Data, &page)
	if status != http.StatusOK || page.Pagination.Total != 1 || len(page.Data) != 1 {
		t.Errorf("list: %d %+v", status, page)
	}
	status, env = call(t, r, http.MethodGet, "/albums", "u2", "")
	_ = json.Unmarshal(env.Data, &page)
	if page.Pagination.Total != 0 {
		t.Errorf("u2 sees %d albums", page.Pagination.Total)
	}

	if status, _ := call(t, r, http.MethodDelete, "/albums/"+a.ID, "u1", ""); status != http.StatusOK {
		t.Errorf("delete = %d", status)
	}
	if status, _ := call(t, r, http.MethodGet, "/albums/"+a.ID, "u1", ""); status != http.StatusNotFound {
		t.Errorf("get after delete = %d", status)
	}
}
