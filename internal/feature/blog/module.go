// Package blog 文章、分类、标签
package blog

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

type Module struct {
	db    *gorm.DB
	authz mdw.Authorizer
	log   *zap.Logger
}

func New(db *gorm.DB, authz mdw.Authorizer, l *zap.Logger) *Module {
	return &Module{db: db, authz: authz, log: l}
}

func (m *Module) Priority() int { return 20 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)
	m.mountPosts(e)
	m.mountTaxonomy(e)
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)
	m.mountAdminPosts(e)
}
