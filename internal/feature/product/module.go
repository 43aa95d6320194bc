// Package product 产品展示与价格方案
package product

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wylm-portal/internal/core/database"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
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

func (m *Module) Priority() int { return 40 }

type listQ struct {
	ez.PageQuery
	Keyword string `form:"keyword"`
}

type adminListQ struct {
	listQ
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type planIn struct {
	Name         string   `json:"name" binding:"required,max=64"`
	Description  string   `json:"description" binding:"max=500"`
	PriceCents   int64    `json:"priceCents" binding:"gte=0"`
	Currency     string   `json:"currency" binding:"omitempty,len=3"`
	Duration     int      `json:"duration" binding:"gte=0"`
	DurationUnit string   `json:"durationUnit" binding:"omitempty,oneof=day month year"`
	Features     []string `json:"features"`
	IsPopular    bool     `json:"isPopular"`
	SortOrder    int      `json:"sortOrder"`
}

type productIn struct {
	Name        string               `json:"name" binding:"required,max=128"`
	Slug        string               `json:"slug" binding:"required,slug"`
	Description string               `json:"description"`
	Features    string               `json:"features"`
	CoverImage  string               `json:"coverImage" binding:"omitempty,url,max=512"`
	DemoVideo   string               `json:"demoVideo" binding:"omitempty,url,max=512"`
	DemoImages  []string             `json:"demoImages"`
	UseCases    string               `json:"useCases"`
	TechStack   []string             `json:"techStack"`
	Status      domain.PublishStatus `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	SortOrder   int                  `json:"sortOrder"`
	Plans       []planIn             `json:"plans" binding:"dive"`
}

func (in *productIn) check() error {
	for _, p := range in.Plans {
		if p.Duration > 0 && p.DurationUnit == "" {
			return ez.BadRequest("durationUnit is required when duration is set")
		}
	}
	return nil
}

func (in *productIn) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = in.Slug
	p.Description = in.Description
	p.Features = in.Features
	p.CoverImage = in.CoverImage
	p.DemoVideo = in.DemoVideo
	p.DemoImages = nonNil(in.DemoImages)
	p.UseCases = in.UseCases
	p.TechStack = nonNil(in.TechStack)
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	p.SortOrder = in.SortOrder
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var (
	errProductNotFound = ez.NotFound("product not found")
	errSlugTaken       = ez.BadRequest("slug already exists")
)

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)

	ez.RegisterAction(e, m.db, ez.Action[listQ, ez.PageResult[domain.Product]]{
		Method: http.MethodGet, Path: "/products", Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *listQ) (ez.PageResult[domain.Product], error) {
			return listProducts(tx, in, domain.StatusPublished)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet, Path: "/products/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Product, error) {
			key := c.Param("id")
			return loadProduct(tx.Where("(id = ? OR slug = ?) AND status = ?", key, key, domain.StatusPublished))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[productIn, *domain.Product]{
		Method: http.MethodPost, Path: "/products", Binder: ez.BindJSON, Perm: domain.PermProductCreate,
		UseTx: true, Status: http.StatusCreated,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *productIn) (*domain.Product, error) {
			if err := in.check(); err != nil {
				return nil, err
			}
			if err := ensureSlugFree(tx, in.Slug, ""); err != nil {
				return nil, err
			}
			var p domain.Product
			in.apply(&p)
			if err := tx.Omit("Plans").Create(&p).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("create product", err)
			}
			if err := replacePlans(tx, p.ID, in.Plans); err != nil {
				return nil, ez.Internal("save plans", err)
			}
			return loadProduct(tx.Where("id = ?", p.ID))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[productIn, *domain.Product]{
		Method: http.MethodPut, Path: "/products/:id", Binder: ez.BindJSON, Perm: domain.PermProductEdit, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *productIn) (*domain.Product, error) {
			if err := in.check(); err != nil {
				return nil, err
			}
			var p domain.Product
			if err := tx.First(&p, "id = ?", c.Param("id")).Error; err != nil {
				if repo.IsNotFound(err) {
					return nil, errProductNotFound
				}
				return nil, ez.Internal("load product", err)
			}
			if err := ensureSlugFree(tx, in.Slug, p.ID); err != nil {
				return nil, err
			}
			in.apply(&p)
			p.UpdatedAt = time.Now()
			err := tx.Model(&p).
				Select("name", "slug", "description", "features", "cover_image", "demo_video", "demo_images",
					"use_cases", "tech_stack", "status", "sort_order", "updated_at").
				Updates(&p).Error
			if err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("update product", err)
			}
			// 方案整体替换
			if err := replacePlans(tx, p.ID, in.Plans); err != nil {
				return nil, ez.Internal("save plans", err)
			}
			return loadProduct(tx.Where("id = ?", p.ID))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/products/:id", Binder: ez.BindNone, Perm: domain.PermProductDelete, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Delete(&domain.Product{}, "id = ?", id)
			if res.Error != nil {
				return nil, ez.Internal("delete product", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, errProductNotFound
			}
			if err := tx.Where("product_id = ?", id).Delete(&domain.ProductPlan{}).Error; err != nil {
				return nil, ez.Internal("delete plans", err)
			}
			if err := repo.PurgeTarget(c.Request.Context(), tx, domain.TargetProduct, id); err != nil {
				return nil, ez.Internal("purge product interactions", err)
			}
			return gin.H{"id": id}, nil
		},
	})
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, m.log, m.authz)
	ez.RegisterAction(e, m.db, ez.Action[adminListQ, ez.PageResult[domain.Product]]{
		Method: http.MethodGet, Path: "/products", Binder: ez.BindQuery, Perm: domain.PermProductEdit,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *adminListQ) (ez.PageResult[domain.Product], error) {
			return listProducts(tx, &in.listQ, domain.PublishStatus(in.Status))
		},
	})
}

func withPlans(db *gorm.DB) *gorm.DB {
	return db.Preload("Plans", func(q *gorm.DB) *gorm.DB { return q.Order("sort_order ASC") })
}

func listProducts(tx *gorm.DB, in *listQ, status domain.PublishStatus) (ez.PageResult[domain.Product], error) {
	in.Normalize()
	q := tx.Model(&domain.Product{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("(name LIKE ? OR description LIKE ?)", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ez.PageResult[domain.Product]{}, ez.Internal("count products", err)
	}
	var list []domain.Product
	err := withPlans(q).Order("sort_order ASC").Order("created_at DESC").
		Offset(in.Offset()).Limit(in.PageSize).
		Find(&list).Error
	if err != nil {
		return ez.PageResult[domain.Product]{}, ez.Internal("list products", err)
	}
	return ez.NewPage(list, total, in.PageQuery), nil
}

func loadProduct(q *gorm.DB) (*domain.Product, error) {
	var p domain.Product
	if err := withPlans(q).First(&p).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, errProductNotFound
		}
		return nil, ez.Internal("load product", err)
	}
	return &p, nil
}

func ensureSlugFree(tx *gorm.DB, slug, exceptID string) error {
	q := tx.Model(&domain.Product{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return ez.Internal("check slug", err)
	}
	if n > 0 {
		return errSlugTaken
	}
	return nil
}

func replacePlans(tx *gorm.DB, productID string, in []planIn) error {
	if err := tx.Where("product_id = ?", productID).Delete(&domain.ProductPlan{}).Error; err != nil {
		return err
	}
	if len(in) == 0 {
		return nil
	}
	plans := make([]domain.ProductPlan, 0, len(in))
	for _, p := range in {
		cur := p.Currency
		if cur == "" {
			cur = "CNY"
		}
		plans = append(plans, domain.ProductPlan{
			ProductID: productID, Name: strings.TrimSpace(p.Name), Description: p.Description,
			PriceCents: p.PriceCents, Currency: strings.ToUpper(cur),
			Duration: p.Duration, DurationUnit: p.DurationUnit,
			Features: nonNil(p.Features), IsPopular: p.IsPopular, SortOrder: p.SortOrder,
		})
	}
	return tx.Create(&plans).Error
}
