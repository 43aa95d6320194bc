package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	resp "wylm-portal/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/auth/login"、"/posts/:id"
	Binder  Binder
	Auth    bool   // 是否要求登录
	Perm    string // 需要的权限码，非空时隐含 Auth
	UseTx   bool   // 是否包事务（gorm.Transaction）
	Status  int    // 成功状态码，默认 200
	Message string // 成功时附带的 message
	Handler func(c *gin.Context, db *gorm.DB, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口；db 可为 nil（处理函数不碰库时）
func RegisterAction[I any, O any](e EZ, db *gorm.DB, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/权限
		if !e.guard(c, a.Auth, a.Perm) {
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			e.fail(c, bindError(bindErr))
			return
		}

		// 3) 执行（可选事务）
		var out O
		var err error
		switch {
		case db == nil:
			out, err = a.Handler(c, nil, &in)
		case a.UseTx:
			err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
				o, e := a.Handler(c, tx, &in)
				out = o
				return e
			})
		default:
			out, err = a.Handler(c, db.WithContext(c.Request.Context()), &in)
		}

		// 4) 统一错误映射
		if err != nil {
			e.fail(c, err)
			return
		}
		if a.Message != "" {
			c.JSON(status, resp.OKMsg(a.Message, out))
			return
		}
		c.JSON(status, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}
