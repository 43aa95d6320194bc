package ez

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	mdw "wylm-portal/internal/transport/http/middleware"
	resp "wylm-portal/internal/transport/http/response"
	"wylm-portal/pkg/utils"
)

// Hook
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterGet     func(c *gin.Context, m *T)
}

// CrudConfig 按归属人隔离的通用 CRUD：只能看到/改动自己创建的记录
type CrudConfig[T any] struct {
	EZ   EZ
	DB   *gorm.DB
	Path string
	New  func() *T
	Perm string // 全部操作共用的权限码；为空只要求登录

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField    string // 默认 "ID"
	OwnerField string // 默认优先 "OwnerID"，其次 "UserID"/"UID"

	IDGen func() string // 默认 utils.NewID

	// 列表排序（列名），为空则按 ID DESC
	OrderBy string // 例如 "created_at DESC"
}

// 反射 & 工具
func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "UserID", "UID"}
	}
	return []string{"OwnerID", "UserID", "UID"}
}

func getStringFieldPtr(obj any, candidates []string) (*string, string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, "", false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, "", false
	}
	t := v.Type()
	// 按候选顺序匹配，保证显式配置的字段优先
	for _, cand := range candidates {
		f, ok := t.FieldByName(cand)
		if !ok || f.PkgPath != "" {
			continue
		}
		fv := v.FieldByIndex(f.Index)
		if fv.Kind() == reflect.String && fv.CanSet() {
			return fv.Addr().Interface().(*string), f.Name, true
		}
	}
	return nil, "", false
}

func readStringField(obj any, candidates []string) (string, bool) {
	p, _, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return "", false
	}
	return *p, true
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, _, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func toSnake(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			// ID / OwnerID 这类连续大写视为一个词
			if i > 0 && (unicode.IsLower(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Crud 注册（无需模型实现任何接口）；模型需要有 string 类型的 ID 与归属字段
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	e := cfg.EZ
	g := e.g

	idFieldNames := cfg.idFieldCandidates()
	ownerFieldNames := cfg.ownerFieldCandidates()
	_, idName, okID := getStringFieldPtr(cfg.New(), idFieldNames)
	_, ownerName, okOwner := getStringFieldPtr(cfg.New(), ownerFieldNames)
	if !okID || !okOwner {
		panic("ez.Crud: model needs string id and owner fields")
	}
	idCol, ownerCol := toSnake(idName), toSnake(ownerName)

	// 取“自己的”那一条；不存在或不属于当前用户都按 404
	loadOwned := func(c *gin.Context, id, uid string) (*T, error) {
		m := cfg.New()
		err := cfg.DB.WithContext(c.Request.Context()).
			Where(clause.Eq{Column: clause.Column{Name: idCol}, Value: id}).
			Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: uid}).
			First(m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("")
		}
		if err != nil {
			return nil, Internal("crud load", err)
		}
		return m, nil
	}

	// Create
	if cfg.AllowCreate {
		g.POST(cfg.Path, func(c *gin.Context) {
			if !e.guard(c, true, cfg.Perm) {
				return
			}
			uid := c.GetString(mdw.CtxUserID)
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				e.fail(c, bindError(err))
				return
			}
			// ID 一律服务端生成，Owner 一律取当前用户
			_ = writeStringField(m, idFieldNames, cfg.IDGen())
			_ = writeStringField(m, ownerFieldNames, uid)

			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					e.fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Create(m).Error; err != nil {
				e.fail(c, Internal("crud create", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusCreated, resp.OK(m))
		})
	}

	// List（我的）
	if cfg.AllowList {
		g.GET(cfg.Path, func(c *gin.Context) {
			if !e.guard(c, true, cfg.Perm) {
				return
			}
			uid := c.GetString(mdw.CtxUserID)
			var pq PageQuery
			_ = c.ShouldBindQuery(&pq)
			pq.Normalize()

			q := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).
				Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: uid})
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}

			var total int64
			if err := q.Count(&total).Error; err != nil {
				e.fail(c, Internal("crud count", err))
				return
			}

			var items []T
			if cfg.OrderBy != "" {
				q = q.Order(cfg.OrderBy)
			} else {
				q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: idCol}, Desc: true})
			}
			if err := q.Limit(pq.PageSize).Offset(pq.Offset()).Find(&items).Error; err != nil {
				e.fail(c, Internal("crud list", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(NewPage(items, total, pq)))
		})
	}

	// Get
	if cfg.AllowGet {
		g.GET(cfg.Path+"/:id", func(c *gin.Context) {
			if !e.guard(c, true, cfg.Perm) {
				return
			}
			m, err := loadOwned(c, c.Param("id"), c.GetString(mdw.CtxUserID))
			if err != nil {
				e.fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Update（整体替换，零值字段也会写入）
	if cfg.AllowUpdate {
		g.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			if !e.guard(c, true, cfg.Perm) {
				return
			}
			id, uid := c.Param("id"), c.GetString(mdw.CtxUserID)
			if _, err := loadOwned(c, id, uid); err != nil {
				e.fail(c, err)
				return
			}

			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				e.fail(c, bindError(err))
				return
			}
			// 强制保持 ID/Owner
			_ = writeStringField(in, idFieldNames, id)
			_ = writeStringField(in, ownerFieldNames, uid)

			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					e.fail(c, err)
					return
				}
			}
			err := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).
				Where(clause.Eq{Column: clause.Column{Name: idCol}, Value: id}).
				Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: uid}).
				Select("*").Omit(idCol, ownerCol, "created_at").
				Updates(in).Error
			if err != nil {
				e.fail(c, Internal("crud update", err))
				return
			}
			m, err := loadOwned(c, id, uid)
			if err != nil {
				e.fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Delete
	if cfg.AllowDelete {
		g.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			if !e.guard(c, true, cfg.Perm) {
				return
			}
			id := c.Param("id")
			res := cfg.DB.WithContext(c.Request.Context()).
				Where(clause.Eq{Column: clause.Column{Name: idCol}, Value: id}).
				Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: c.GetString(mdw.CtxUserID)}).
				Delete(cfg.New())
			if res.Error != nil {
				e.fail(c, Internal("crud delete", res.Error))
				return
			}
			if res.RowsAffected == 0 {
				e.fail(c, NotFound(""))
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}
}
