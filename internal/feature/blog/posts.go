package blog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/core/database"
	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

type postListQ struct {
	ez.PageQuery
	CategoryID string `form:"categoryId"`
	TagID      string `form:"tagId"`
	Keyword    string `form:"keyword"`
	SortBy     string `form:"sortBy" binding:"omitempty,oneof=createdAt publishedAt viewCount likeCount"`
	SortOrder  string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

type adminPostListQ struct {
	postListQ
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"publishedAt": "published_at",
	"viewCount":   "view_count",
	"likeCount":   "like_count",
}

// postIn 创建与全量更新共用；TagIDs 为 nil 时更新不动标签，空数组表示清空
type postIn struct {
	Title      string               `json:"title" binding:"required,max=200"`
	Slug       string               `json:"slug" binding:"required,slug"`
	Excerpt    string               `json:"excerpt" binding:"max=500"`
	Content    string               `json:"content" binding:"required"`
	CoverImage string               `json:"coverImage" binding:"omitempty,url,max=512"`
	Status     domain.PublishStatus `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	IsPinned   bool                 `json:"isPinned"`
	CategoryID string               `json:"categoryId"`
	TagIDs     []string             `json:"tagIds"`
}

func (in *postIn) apply(p *domain.Post, now time.Time) {
	p.Title = strings.TrimSpace(in.Title)
	p.Slug = in.Slug
	p.Excerpt = in.Excerpt
	p.Content = in.Content
	p.CoverImage = in.CoverImage
	p.IsPinned = in.IsPinned
	p.CategoryID = nil
	if in.CategoryID != "" {
		p.CategoryID = &in.CategoryID
	}
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	if p.Status == domain.StatusPublished && p.PublishedAt == nil {
		p.PublishedAt = &now
	}
}

// postTag 多对多中间表，直接读写以便整体替换
type postTag struct {
	PostID string `gorm:"primaryKey;size:32"`
	TagID  string `gorm:"primaryKey;size:32"`
}

func (postTag) TableName() string { return "post_tags" }

var errSlugTaken = ez.BadRequest("slug already exists")

func (m *Module) mountPosts(e ez.EZ) {
	ez.RegisterAction(e, m.db, ez.Action[postListQ, ez.PageResult[domain.Post]]{
		Method: http.MethodGet, Path: "/posts", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, tx *gorm.DB, in *postListQ) (ez.PageResult[domain.Post], error) {
			return listPosts(c.Request.Context(), tx, in, domain.StatusPublished)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, *domain.Post]{
		Method: http.MethodGet, Path: "/posts/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Post, error) {
			key := c.Param("id")
			// 先原子自增，顺带确认文章存在且已发布
			res := tx.Model(&domain.Post{}).
				Where("(id = ? OR slug = ?) AND status = ?", key, key, domain.StatusPublished).
				UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
			if res.Error != nil {
				return nil, ez.Internal("count post view", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, ez.NotFound("post not found")
			}
			return loadPost(c.Request.Context(), tx.Where("id = ? OR slug = ?", key, key))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[postIn, *domain.Post]{
		Method: http.MethodPost, Path: "/posts", Binder: ez.BindJSON, Perm: domain.PermPostCreate,
		UseTx: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *postIn) (*domain.Post, error) {
			if err := checkRefs(tx, in); err != nil {
				return nil, err
			}
			if taken, err := slugTaken(tx, in.Slug, ""); err != nil {
				return nil, ez.Internal("check slug", err)
			} else if taken {
				return nil, errSlugTaken
			}

			p := domain.Post{AuthorID: mdw.UserID(c)}
			in.apply(&p, time.Now())
			if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("create post", err)
			}
			if err := replaceTags(tx, p.ID, in.TagIDs); err != nil {
				return nil, ez.Internal("save post tags", err)
			}
			return loadPost(c.Request.Context(), tx.Where("id = ?", p.ID))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[postIn, *domain.Post]{
		Method: http.MethodPut, Path: "/posts/:id", Binder: ez.BindJSON, Perm: domain.PermPostEdit, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *postIn) (*domain.Post, error) {
			var p domain.Post
			if err := tx.First(&p, "id = ?", c.Param("id")).Error; err != nil {
				if repo.IsNotFound(err) {
					return nil, ez.NotFound("post not found")
				}
				return nil, ez.Internal("load post", err)
			}
			if err := checkRefs(tx, in); err != nil {
				return nil, err
			}
			if taken, err := slugTaken(tx, in.Slug, p.ID); err != nil {
				return nil, ez.Internal("check slug", err)
			} else if taken {
				return nil, errSlugTaken
			}

			now := time.Now()
			in.apply(&p, now)
			p.UpdatedAt = now
			err := tx.Model(&p).
				Select("title", "slug", "excerpt", "content", "cover_image", "status",
					"is_pinned", "category_id", "published_at", "updated_at").
				Updates(&p).Error
			if err != nil {
				if database.IsDuplicateKey(err) {
					return nil, errSlugTaken
				}
				return nil, ez.Internal("update post", err)
			}
			if in.TagIDs != nil {
				if err := replaceTags(tx, p.ID, in.TagIDs); err != nil {
					return nil, ez.Internal("save post tags", err)
				}
			}
			return loadPost(c.Request.Context(), tx.Where("id = ?", p.ID))
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/posts/:id", Binder: ez.BindNone, Perm: domain.PermPostDelete, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Delete(&domain.Post{}, "id = ?", id)
			if res.Error != nil {
				return nil, ez.Internal("delete post", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, ez.NotFound("post not found")
			}
			if err := tx.Where("post_id = ?", id).Delete(&postTag{}).Error; err != nil {
				return nil, ez.Internal("delete post tags", err)
			}
			if err := repo.PurgeTarget(c.Request.Context(), tx, domain.TargetPost, id); err != nil {
				return nil, ez.Internal("purge post interactions", err)
			}
			return gin.H{"id": id}, nil
		},
	})
}

func (m *Module) mountAdminPosts(e ez.EZ) {
	ez.RegisterAction(e, m.db, ez.Action[adminPostListQ, ez.PageResult[domain.Post]]{
		Method: http.MethodGet, Path: "/posts", Binder: ez.BindQuery, Perm: domain.PermPostEdit,
		Handler: func(c *gin.Context, tx *gorm.DB, in *adminPostListQ) (ez.PageResult[domain.Post], error) {
			return listPosts(c.Request.Context(), tx, &in.postListQ, domain.PublishStatus(in.Status))
		},
	})
}

// listPosts status 为空表示不限状态；列表不带正文
func listPosts(ctx context.Context, tx *gorm.DB, in *postListQ, status domain.PublishStatus) (ez.PageResult[domain.Post], error) {
	in.Normalize()
	q := tx.Model(&domain.Post{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if in.CategoryID != "" {
		q = q.Where("category_id = ?", in.CategoryID)
	}
	if in.TagID != "" {
		q = q.Where("id IN (?)", tx.Model(&postTag{}).Select("post_id").Where("tag_id = ?", in.TagID))
	}
	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("(title LIKE ? OR excerpt LIKE ?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ez.PageResult[domain.Post]{}, ez.Internal("count posts", err)
	}

	col, ok := sortColumns[in.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if in.SortOrder == "asc" {
		dir = "ASC"
	}
	var list []domain.Post
	err := q.Omit("content").Preload("Category").Preload("Tags").
		Order("is_pinned DESC").Order(col + " " + dir).
		Offset(in.Offset()).Limit(in.PageSize).
		Find(&list).Error
	if err != nil {
		return ez.PageResult[domain.Post]{}, ez.Internal("list posts", err)
	}
	if err := attachAuthors(ctx, tx, list); err != nil {
		return ez.PageResult[domain.Post]{}, ez.Internal("load authors", err)
	}
	return ez.NewPage(list, total, in.PageQuery), nil
}

// loadPost q 已带好定位条件
func loadPost(ctx context.Context, q *gorm.DB) (*domain.Post, error) {
	var p domain.Post
	if err := q.Preload("Category").Preload("Tags").First(&p).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, ez.NotFound("post not found")
		}
		return nil, ez.Internal("load post", err)
	}
	list := []domain.Post{p}
	if err := attachAuthors(ctx, q, list); err != nil {
		return nil, ez.Internal("load author", err)
	}
	return &list[0], nil
}

func attachAuthors(ctx context.Context, db *gorm.DB, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].AuthorID)
	}
	authors, err := repo.NewUserRepo(db.Session(&gorm.Session{NewDB: true})).Authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Author = authors[posts[i].AuthorID]
	}
	return nil
}

func slugTaken(tx *gorm.DB, slug, exceptID string) (bool, error) {
	q := tx.Model(&domain.Post{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// checkRefs 分类必须是文章分类，标签必须都存在
func checkRefs(tx *gorm.DB, in *postIn) error {
	if in.CategoryID != "" {
		var n int64
		err := tx.Model(&domain.Category{}).
			Where("id = ? AND type = ?", in.CategoryID, domain.CategoryPost).
			Count(&n).Error
		if err != nil {
			return ez.Internal("check category", err)
		}
		if n == 0 {
			return ez.BadRequest("category not found")
		}
	}
	in.TagIDs = dedupe(in.TagIDs)
	if len(in.TagIDs) > 0 {
		var n int64
		if err := tx.Model(&domain.Tag{}).Where("id IN ?", in.TagIDs).Count(&n).Error; err != nil {
			return ez.Internal("check tags", err)
		}
		if int(n) != len(in.TagIDs) {
			return ez.BadRequest("tag not found")
		}
	}
	return nil
}

func replaceTags(tx *gorm.DB, postID string, tagIDs []string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&postTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]postTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, postTag{PostID: postID, TagID: id})
	}
	return tx.Create(&rows).Error
}

// dedupe 保持顺序去重；nil 仍返回 nil
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
