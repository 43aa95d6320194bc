// Package gallery 摄影作品、上传、相册
package gallery

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

// Uploader 对象存储；*storage.ObjectStore 满足该接口
type Uploader interface {
	Put(ctx context.Context, prefix, filename string, r io.Reader, size int64, contentType string) (string, error)
}

type Module struct {
	db    *gorm.DB
	authz mdw.Authorizer
	store Uploader // 未配置存储时为 nil，上传返回 503
	log   *zap.Logger
}

func New(db *gorm.DB, authz mdw.Authorizer, store Uploader, l *zap.Logger) *Module {
	return &Module{db: db, authz: authz, store: store, log: l}
}

func (m *Module) Priority() int { return 30 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)
	m.mountPhotos(e)
	e.POSTFILES("/photos/upload", "files", domain.PermPhotoUpload, m.upload)

	ez.Crud(ez.CrudConfig[domain.Album]{
		EZ: e, DB: m.db, Path: "/albums",
		New:     func() *domain.Album { return &domain.Album{} },
		Perm:    domain.PermAlbumManage,
		OrderBy: "created_at DESC",
		Hooks: ez.CrudHooks[domain.Album]{
			BeforeCreate: trimAlbum,
			BeforeUpdate: trimAlbum,
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if kw := strings.TrimSpace(c.Query("keyword")); kw != "" {
					q = q.Where("title LIKE ?", "%"+kw+"%")
				}
				return q
			},
		},
	})
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)
	m.mountAdminPhotos(e)
}

func trimAlbum(_ *gin.Context, a *domain.Album) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return ez.BadRequest("title is required")
	}
	return nil
}
