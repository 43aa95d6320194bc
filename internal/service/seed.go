package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/domain"
	"wylm-portal/pkg/utils"
)

var seedPermissions = []domain.Permission{
	{Code: domain.PermSystemConfig, Name: "系统配置", Module: "system", Description: "管理系统配置"},

	{Code: domain.PermUserManage, Name: "用户管理", Module: "user", Description: "管理用户"},
	{Code: domain.PermRoleManage, Name: "角色管理", Module: "user", Description: "管理角色"},
	{Code: domain.PermPermissionManage, Name: "权限管理", Module: "user", Description: "管理权限"},

	{Code: domain.PermPostView, Name: "博客查看", Module: "blog", Description: "查看博客"},
	{Code: domain.PermPostCreate, Name: "博客创建", Module: "blog", Description: "创建博客"},
	{Code: domain.PermPostEdit, Name: "博客编辑", Module: "blog", Description: "编辑博客"},
	{Code: domain.PermPostDelete, Name: "博客删除", Module: "blog", Description: "删除博客"},
	{Code: domain.PermCategoryManage, Name: "分类管理", Module: "blog", Description: "管理分类"},
	{Code: domain.PermTagManage, Name: "标签管理", Module: "blog", Description: "管理标签"},

	{Code: domain.PermPhotoView, Name: "作品查看", Module: "gallery", Description: "查看作品"},
	{Code: domain.PermPhotoUpload, Name: "作品上传", Module: "gallery", Description: "上传作品"},
	{Code: domain.PermPhotoEdit, Name: "作品编辑", Module: "gallery", Description: "编辑作品"},
	{Code: domain.PermPhotoDelete, Name: "作品删除", Module: "gallery", Description: "删除作品"},
	{Code: domain.PermAlbumManage, Name: "相册管理", Module: "gallery", Description: "管理相册"},

	{Code: domain.PermProductView, Name: "产品查看", Module: "product", Description: "查看产品"},
	{Code: domain.PermProductCreate, Name: "产品创建", Module: "product", Description: "创建产品"},
	{Code: domain.PermProductEdit, Name: "产品编辑", Module: "product", Description: "编辑产品"},
	{Code: domain.PermProductDelete, Name: "产品删除", Module: "product", Description: "删除产品"},

	{Code: domain.PermCommentView, Name: "评论查看", Module: "comment", Description: "查看评论"},
	{Code: domain.PermCommentCreate, Name: "评论发布", Module: "comment", Description: "发布评论"},
	{Code: domain.PermCommentAudit, Name: "评论审核", Module: "comment", Description: "审核评论"},
	{Code: domain.PermCommentDelete, Name: "评论删除", Module: "comment", Description: "删除评论"},

	{Code: domain.PermLikeCreate, Name: "点赞", Module: "interaction", Description: "点赞"},
	{Code: domain.PermFavoriteCreate, Name: "收藏", Module: "interaction", Description: "收藏"},
	{Code: domain.PermDonationCreate, Name: "赞赏", Module: "interaction", Description: "赞赏"},

	{Code: domain.PermOrderView, Name: "订单查看", Module: "order", Description: "查看订单"},
	{Code: domain.PermOrderManage, Name: "订单管理", Module: "order", Description: "管理订单"},
}

type seedRole struct {
	name, desc string
	perms      []string // nil 表示全部权限
}

var seedRoles = []seedRole{
	{name: domain.RoleSuperAdmin, desc: "超级管理员，拥有所有权限"},
	{name: domain.RoleEditor, desc: "内容编辑者，可管理博客、作品、产品和评论", perms: []string{
		domain.PermPostView, domain.PermPostCreate, domain.PermPostEdit, domain.PermPostDelete,
		domain.PermCategoryManage, domain.PermTagManage,
		domain.PermPhotoView, domain.PermPhotoUpload, domain.PermPhotoEdit, domain.PermPhotoDelete, domain.PermAlbumManage,
		domain.PermProductView, domain.PermProductCreate, domain.PermProductEdit, domain.PermProductDelete,
		domain.PermCommentView, domain.PermCommentAudit, domain.PermCommentDelete,
	}},
	{name: domain.RoleUser, desc: "普通用户，可浏览、评论、点赞", perms: []string{
		domain.PermPostView, domain.PermPhotoView, domain.PermProductView,
		domain.PermCommentView, domain.PermCommentCreate,
		domain.PermLikeCreate, domain.PermFavoriteCreate, domain.PermDonationCreate,
	}},
	{name: domain.RoleGuest, desc: "游客，仅可浏览", perms: []string{
		domain.PermPostView, domain.PermPhotoView, domain.PermProductView,
	}},
}

var seedCategories = []domain.Category{
	{Name: "技术", Slug: "tech", Description: "技术相关文章", Icon: "💻", Color: "#3B82F6", Type: domain.CategoryPost, SortOrder: 1},
	{Name: "生活", Slug: "life", Description: "生活随笔", Icon: "🌈", Color: "#10B981", Type: domain.CategoryPost, SortOrder: 2},
	{Name: "摄影", Slug: "photography", Description: "摄影相关", Icon: "📷", Color: "#F59E0B", Type: domain.CategoryPost, SortOrder: 3},
	{Name: "旅行", Slug: "travel", Description: "旅行游记", Icon: "✈️", Color: "#8B5CF6", Type: domain.CategoryPost, SortOrder: 4},
	{Name: "风光", Slug: "landscape", Description: "风光摄影", Icon: "🏔️", Color: "#06B6D4", Type: domain.CategoryPhoto, SortOrder: 1},
	{Name: "人像", Slug: "portrait", Description: "人像摄影", Icon: "👤", Color: "#EC4899", Type: domain.CategoryPhoto, SortOrder: 2},
	{Name: "街拍", Slug: "street", Description: "街头摄影", Icon: "🏙️", Color: "#6366F1", Type: domain.CategoryPhoto, SortOrder: 3},
	{Name: "静物", Slug: "still-life", Description: "静物摄影", Icon: "🎨", Color: "#F97316", Type: domain.CategoryPhoto, SortOrder: 4},
}

var seedTags = []domain.Tag{
	{Name: "JavaScript", Slug: "javascript", Color: "#F7DF1E"},
	{Name: "TypeScript", Slug: "typescript", Color: "#3178C6"},
	{Name: "React", Slug: "react", Color: "#61DAFB"},
	{Name: "Next.js", Slug: "nextjs", Color: "#000000"},
	{Name: "Node.js", Slug: "nodejs", Color: "#339933"},
	{Name: "PostgreSQL", Slug: "postgresql", Color: "#4169E1"},
	{Name: "前端开发", Slug: "frontend", Color: "#FF6B6B"},
	{Name: "后端开发", Slug: "backend", Color: "#4ECDC4"},
	{Name: "全栈开发", Slug: "fullstack", Color: "#95E1D3"},
	{Name: "教程", Slug: "tutorial", Color: "#FFA07A"},
}

var seedSiteConfigs = []domain.SiteConfig{
	{Key: "site_name", Value: "WYLM", Type: "string", Group: "basic", Label: "网站名称"},
	{Key: "site_url", Value: "http://localhost:3000", Type: "string", Group: "basic", Label: "网站地址"},
	{Key: "site_description", Value: "个人网站", Type: "string", Group: "basic", Label: "网站描述"},
	{Key: "site_keywords", Value: "博客,摄影,产品", Type: "string", Group: "basic", Label: "网站关键词"},
	{Key: "enable_comments", Value: "true", Type: "boolean", Group: "features", Label: "启用评论"},
	{Key: "enable_donations", Value: "true", Type: "boolean", Group: "features", Label: "启用赞赏"},
	{Key: "enable_registration", Value: "true", Type: "boolean", Group: "features", Label: "启用注册"},
}

type SeedOptions struct {
	AdminPhone    string
	AdminPassword string
}

type SeedReport struct {
	Roles       int  `json:"roles"`
	Permissions int  `json:"permissions"`
	Grants      int  `json:"grants"`
	Categories  int  `json:"categories"`
	Tags        int  `json:"tags"`
	SiteConfigs int  `json:"siteConfigs"`
	AdminUser   bool `json:"adminUser"`
}

// Seeder 初始化数据；所有写入都是按唯一键"有则跳过"，可重复执行
type Seeder struct {
	db     *gorm.DB
	rbac   domain.RBACRepository
	users  domain.UserRepository
	hasher *utils.Hasher
	opts   SeedOptions
	log    *zap.Logger
}

func NewSeeder(db *gorm.DB, rbac domain.RBACRepository, users domain.UserRepository, hasher *utils.Hasher, opts SeedOptions, l *zap.Logger) *Seeder {
	return &Seeder{db: db, rbac: rbac, users: users, hasher: hasher, opts: opts, log: l}
}

func (s *Seeder) Run(ctx context.Context) (*SeedReport, error) {
	rep := &SeedReport{}

	permIDs := make(map[string]string, len(seedPermissions))
	for _, p := range seedPermissions {
		p := p
		if err := s.rbac.EnsurePermission(ctx, &p); err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", p.Code, err)
		}
		permIDs[p.Code] = p.ID
		rep.Permissions++
	}

	roleIDs := make(map[string]string, len(seedRoles))
	for _, sr := range seedRoles {
		role := domain.Role{Name: sr.name, Description: sr.desc}
		if err := s.rbac.EnsureRole(ctx, &role); err != nil {
			return nil, fmt.Errorf("seed role %s: %w", sr.name, err)
		}
		roleIDs[sr.name] = role.ID
		rep.Roles++

		codes := sr.perms
		if codes == nil {
			codes = make([]string, 0, len(seedPermissions))
			for _, p := range seedPermissions {
				codes = append(codes, p.Code)
			}
		}
		for _, code := range codes {
			if err := s.rbac.GrantPermission(ctx, role.ID, permIDs[code]); err != nil {
				return nil, fmt.Errorf("grant %s to %s: %w", code, sr.name, err)
			}
			rep.Grants++
		}
	}

	for _, c := range seedCategories {
		c := c
		if err := s.insertIgnore(ctx, &c, "slug"); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
		rep.Categories++
	}
	for _, t := range seedTags {
		t := t
		if err := s.insertIgnore(ctx, &t, "slug"); err != nil {
			return nil, fmt.Errorf("seed tag %s: %w", t.Slug, err)
		}
		rep.Tags++
	}
	for _, sc := range seedSiteConfigs {
		sc := sc
		if err := s.insertIgnore(ctx, &sc, "key"); err != nil {
			return nil, fmt.Errorf("seed site config %s: %w", sc.Key, err)
		}
		rep.SiteConfigs++
	}

	created, err := s.ensureAdmin(ctx, roleIDs[domain.RoleSuperAdmin])
	if err != nil {
		return nil, err
	}
	rep.AdminUser = created

	s.log.Info("seed done",
		zap.Int("roles", rep.Roles), zap.Int("permissions", rep.Permissions),
		zap.Int("grants", rep.Grants), zap.Bool("admin_created", rep.AdminUser))
	return rep, nil
}

func (s *Seeder) insertIgnore(ctx context.Context, v any, uniqueCol string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: uniqueCol}}, DoNothing: true}).
		Create(v).Error
}

// ensureAdmin 未配置管理员手机号时跳过；已存在的账号只补绑定角色，不改密码
func (s *Seeder) ensureAdmin(ctx context.Context, superAdminID string) (bool, error) {
	if s.opts.AdminPhone == "" || s.opts.AdminPassword == "" {
		return false, nil
	}
	if !utils.ValidPhone(s.opts.AdminPhone) {
		return false, fmt.Errorf("seed admin: %w", ErrInvalidPhone)
	}

	created := false
	u, err := s.users.FindByPhone(ctx, s.opts.AdminPhone)
	if err != nil {
		return false, err
	}
	if u == nil {
		hash, err := s.hasher.Hash(ctx, s.opts.AdminPassword)
		if err != nil {
			return false, err
		}
		u = &domain.User{
			Phone:        s.opts.AdminPhone,
			PasswordHash: hash,
			Nickname:     "超级管理员",
			Status:       domain.UserActive,
		}
		if err := s.users.Create(ctx, u); err != nil {
			if !errors.Is(err, domain.ErrDuplicate) {
				return false, err
			}
			if u, err = s.users.FindByPhone(ctx, s.opts.AdminPhone); err != nil || u == nil {
				return false, fmt.Errorf("reload admin: %w", err)
			}
		} else {
			created = true
		}
	}
	if err := s.rbac.AssignRole(ctx, u.ID, superAdminID); err != nil {
		return false, fmt.Errorf("bind admin role: %w", err)
	}
	return created, nil
}
