package comment

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

func (m *Module) Priority() int { return 50 }

type listQ struct {
	ez.PageQuery
	TargetType domain.TargetType `form:"targetType" binding:"required,oneof=POST PHOTO PRODUCT"`
	TargetID   string            `form:"targetId" binding:"required"`
}

type adminListQ struct {
	ez.PageQuery
	Status     domain.CommentStatus `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	TargetType domain.TargetType    `form:"targetType" binding:"omitempty,oneof=POST PHOTO PRODUCT"`
}

type statusIn struct {
	Status domain.CommentStatus `json:"status" binding:"required,oneof=PENDING APPROVED REJECTED"`
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)

	ez.RegisterAction(e, nil, ez.Action[listQ, ez.PageResult[domain.Comment]]{
		Method: http.MethodGet, Path: "/comments", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (ez.PageResult[domain.Comment], error) {
			in.Normalize()
			list, total, err := m.svc.List(c.Request.Context(), in.TargetType, in.TargetID, in.Offset(), in.PageSize)
			if err != nil {
				return ez.PageResult[domain.Comment]{}, mapErr(err)
			}
			return ez.NewPage(list, total, in.PageQuery), nil
		},
	})

	ez.RegisterAction(e, nil, ez.Action[CreateInput, *domain.Comment]{
		Method: http.MethodPost, Path: "/comments", Binder: ez.BindJSON, Perm: domain.PermCommentCreate,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *CreateInput) (*domain.Comment, error) {
			cm, err := m.svc.Create(c.Request.Context(), mdw.UserID(c), *in)
			return cm, mapErr(err)
		},
	})
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)

	ez.RegisterAction(e, nil, ez.Action[adminListQ, ez.PageResult[domain.Comment]]{
		Method: http.MethodGet, Path: "/comments", Binder: ez.BindQuery, Perm: domain.PermCommentView,
		Handler: func(c *gin.Context, _ *gorm.DB, in *adminListQ) (ez.PageResult[domain.Comment], error) {
			in.Normalize()
			list, total, err := m.svc.AdminList(c.Request.Context(), Filter{
				Status: in.Status, TargetType: in.TargetType, Offset: in.Offset(), Limit: in.PageSize,
			})
			if err != nil {
				return ez.PageResult[domain.Comment]{}, mapErr(err)
			}
			return ez.NewPage(list, total, in.PageQuery), nil
		},
	})

	ez.RegisterAction(e, nil, ez.Action[statusIn, *domain.Comment]{
		Method: http.MethodPut, Path: "/comments/:id/status", Binder: ez.BindJSON, Perm: domain.PermCommentAudit,
		Handler: func(c *gin.Context, _ *gorm.DB, in *statusIn) (*domain.Comment, error) {
			cm, err := m.svc.SetStatus(c.Request.Context(), c.Param("id"), in.Status)
			if err == nil {
				m.log.Info("comment audited", zap.String("comment_id", cm.ID),
					zap.String("status", string(cm.Status)), zap.String("by", mdw.UserID(c)))
			}
			return cm, mapErr(err)
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/comments/:id", Binder: ez.BindNone, Perm: domain.PermCommentDelete,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := m.svc.Delete(c.Request.Context(), id); err != nil {
				return nil, mapErr(err)
			}
			return gin.H{"id": id}, nil
		},
	})
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTargetNotFound), errors.Is(err, ErrParentNotFound), errors.Is(err, ErrCommentNotFound):
		return ez.NotFound(err.Error())
	case errors.Is(err, ErrParentMismatch), errors.Is(err, ErrEmptyContent):
		return ez.BadRequest(err.Error())
	}
	return ez.Internal("comment service", err)
}
