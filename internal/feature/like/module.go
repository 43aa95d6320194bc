package like

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

type Module struct {
	svc   *Service
	authz mdw.Authorizer
	log   *zap.Logger
}

func New(svc *Service, authz mdw.Authorizer, l *zap.Logger) *Module {
	return &Module{svc: svc, authz: authz, log: l}
}

func (m *Module) Priority() int { return 60 }

type targetIn struct {
	TargetType domain.TargetType `json:"targetType" form:"targetType" binding:"required,oneof=POST PHOTO COMMENT"`
	TargetID   string            `json:"targetId" form:"targetId" binding:"required"`
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)

	ez.RegisterAction(e, nil, ez.Action[targetIn, Result]{
		Method: http.MethodPost, Path: "/likes", Binder: ez.BindJSON, Perm: domain.PermLikeCreate,
		Handler: func(c *gin.Context, _ *gorm.DB, in *targetIn) (Result, error) {
			res, err := m.svc.Toggle(c.Request.Context(), mdw.UserID(c), in.TargetType, in.TargetID)
			return res, mapErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[targetIn, Result]{
		Method: http.MethodGet, Path: "/likes/check", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *targetIn) (Result, error) {
			res, err := m.svc.Check(c.Request.Context(), mdw.UserID(c), in.TargetType, in.TargetID)
			return res, mapErr(err)
		},
	})
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTargetNotFound):
		return ez.NotFound(err.Error())
	case errors.Is(err, ErrUnsupportedTarget):
		return ez.BadRequest(err.Error())
	}
	return ez.Internal("like service", err)
}
