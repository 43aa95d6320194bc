package blog

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"wylm-portal/internal/core/database"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/transport/http/ez"
)

type categoryQ struct {
	Type string `form:"type" binding:"omitempty,oneof=POST PHOTO"`
}

type categoryIn struct {
	Name        string              `json:"name" binding:"required,max=64"`
	Slug        string              `json:"slug" binding:"required,slug"`
	Description string              `json:"description" binding:"max=255"`
	Icon        string              `json:"icon" binding:"max=32"`
	Color       string              `json:"color" binding:"max=16"`
	Type        domain.CategoryType `json:"type" binding:"required,oneof=POST PHOTO"`
	SortOrder   int                 `json:"sortOrder"`
}

type tagQ struct {
	Keyword string `form:"keyword"`
}

type tagIn struct {
	Name  string `json:"name" binding:"required,max=64"`
	Slug  string `json:"slug" binding:"required,slug"`
	Color string `json:"color" binding:"max=16"`
}

func (m *Module) mountTaxonomy(e ez.EZ) {
	ez.RegisterAction(e, m.db, ez.Action[categoryQ, []domain.Category]{
		Method: http.MethodGet, Path: "/categories", Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *categoryQ) ([]domain.Category, error) {
			q := tx.Order("sort_order ASC").Order("created_at ASC")
			if in.Type != "" {
				q = q.Where("type = ?", in.Type)
			}
			list := []domain.Category{}
			if err := q.Find(&list).Error; err != nil {
				return nil, ez.Internal("list categories", err)
			}
			return list, nil
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPost, Path: "/categories", Binder: ez.BindJSON, Perm: domain.PermCategoryManage,
		Status: http.StatusCreated,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *categoryIn) (*domain.Category, error) {
			cat := domain.Category{
				Name: strings.TrimSpace(in.Name), Slug: in.Slug, Description: in.Description,
				Icon: in.Icon, Color: in.Color, Type: in.Type, SortOrder: in.SortOrder,
			}
			if err := tx.Create(&cat).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("create category", err)
			}
			return &cat, nil
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[tagQ, []domain.Tag]{
		Method: http.MethodGet, Path: "/tags", Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *tagQ) ([]domain.Tag, error) {
			q := tx.Order("name ASC")
			if kw := strings.TrimSpace(in.Keyword); kw != "" {
				like := "%" + kw + "%"
				q = q.Where("name LIKE ? OR slug LIKE ?", like, like)
			}
			list := []domain.Tag{}
			if err := q.Find(&list).Error; err != nil {
				return nil, ez.Internal("list tags", err)
			}
			return list, nil
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[tagIn, *domain.Tag]{
		Method: http.MethodPost, Path: "/tags", Binder: ez.BindJSON, Perm: domain.PermTagManage,
		Status: http.StatusCreated,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *tagIn) (*domain.Tag, error) {
			tag := domain.Tag{Name: strings.TrimSpace(in.Name), Slug: in.Slug, Color: in.Color}
			if err := tx.Create(&tag).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("create tag", err)
			}
			return &tag, nil
		},
	})
}
