package gallery

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

type photoListQ struct {
	ez.PageQuery
	CategoryID string `form:"categoryId"`
	TagID      string `form:"tagId"`
	Keyword    string `form:"keyword"`
}

type adminPhotoListQ struct {
	photoListQ
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type photoIn struct {
	Title         string               `json:"title" binding:"required,max=200"`
	Description   string               `json:"description"`
	ImageURL      string               `json:"imageUrl" binding:"required,url,max=512"`
	ThumbnailURL  string               `json:"thumbnailUrl" binding:"omitempty,url,max=512"`
	Width         int                  `json:"width" binding:"gte=0"`
	Height        int                  `json:"height" binding:"gte=0"`
	Location      string               `json:"location" binding:"max=128"`
	TakenAt       *time.Time           `json:"takenAt"`
	Exif          domain.PhotoExif     `json:"exif"`
	AllowDownload bool                 `json:"allowDownload"`
	Status        domain.PublishStatus `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	CategoryID    string               `json:"categoryId"`
	TagIDs        []string             `json:"tagIds"`
}

func (in *photoIn) apply(p *domain.Photo) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	p.ThumbnailURL = in.ThumbnailURL
	p.Width, p.Height = in.Width, in.Height
	p.Location = in.Location
	p.TakenAt = in.TakenAt
	p.Exif = in.Exif
	p.AllowDownload = in.AllowDownload
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.StatusPublished
	}
	p.CategoryID = nil
	if in.CategoryID != "" {
		p.CategoryID = &in.CategoryID
	}
}

type photoTag struct {
	PhotoID string `gorm:"primaryKey;size:32"`
	TagID   string `gorm:"primaryKey;size:32"`
}

func (photoTag) TableName() string { return "photo_tags" }

type downloadOut struct {
	URL           string `json:"url"`
	DownloadCount int64  `json:"downloadCount"`
}

var errPhotoNotFound = ez.NotFound("photo not found")

func (m *Module) mountPhotos(e ez.EZ) {
	ez.RegisterAction(e, m.db, ez.Action[photoListQ, ez.PageResult[domain.Photo]]{
		Method: http.MethodGet, Path: "/photos", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, tx *gorm.DB, in *photoListQ) (ez.PageResult[domain.Photo], error) {
			return listPhotos(c.Request.Context(), tx, in, domain.StatusPublished)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, *domain.Photo]{
		Method: http.MethodGet, Path: "/photos/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Photo, error) {
			id := c.Param("id")
			res := tx.Model(&domain.Photo{}).
				Where("id = ? AND status = ?", id, domain.StatusPublished).
				UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
			if res.Error != nil {
				return nil, ez.Internal("count photo view", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, errPhotoNotFound
			}
			return loadPhoto(c.Request.Context(), tx, id)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[photoIn, *domain.Photo]{
		Method: http.MethodPost, Path: "/photos", Binder: ez.BindJSON, Perm: domain.PermPhotoUpload,
		UseTx: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *photoIn) (*domain.Photo, error) {
			if err := checkRefs(tx, in); err != nil {
				return nil, err
			}
			p := domain.Photo{AuthorID: mdw.UserID(c)}
			in.apply(&p)
			if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
				return nil, ez.Internal("create photo", err)
			}
			if err := replaceTags(tx, p.ID, in.TagIDs); err != nil {
				return nil, ez.Internal("save photo tags", err)
			}
			return loadPhoto(c.Request.Context(), tx, p.ID)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[photoIn, *domain.Photo]{
		Method: http.MethodPut, Path: "/photos/:id", Binder: ez.BindJSON, Perm: domain.PermPhotoEdit, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *photoIn) (*domain.Photo, error) {
			var p domain.Photo
			if err := tx.First(&p, "id = ?", c.Param("id")).Error; err != nil {
				if repo.IsNotFound(err) {
					return nil, errPhotoNotFound
				}
				return nil, ez.Internal("load photo", err)
			}
			if err := checkRefs(tx, in); err != nil {
				return nil, err
			}
			in.apply(&p)
			p.UpdatedAt = time.Now()
			err := tx.Model(&p).
				Select("title", "description", "image_url", "thumbnail_url", "width", "height", "location", "taken_at",
					"exif_camera", "exif_lens", "exif_aperture", "exif_shutter", "exif_iso", "exif_focal_length",
					"allow_download", "status", "category_id", "updated_at").
				Updates(&p).Error
			if err != nil {
				return nil, ez.Internal("update photo", err)
			}
			if in.TagIDs != nil {
				if err := replaceTags(tx, p.ID, in.TagIDs); err != nil {
					return nil, ez.Internal("save photo tags", err)
				}
			}
			return loadPhoto(c.Request.Context(), tx, p.ID)
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/photos/:id", Binder: ez.BindNone, Perm: domain.PermPhotoDelete, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Delete(&domain.Photo{}, "id = ?", id)
			if res.Error != nil {
				return nil, ez.Internal("delete photo", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, errPhotoNotFound
			}
			if err := tx.Where("photo_id = ?", id).Delete(&photoTag{}).Error; err != nil {
				return nil, ez.Internal("delete photo tags", err)
			}
			if err := repo.PurgeTarget(c.Request.Context(), tx, domain.TargetPhoto, id); err != nil {
				return nil, ez.Internal("purge photo interactions", err)
			}
			return gin.H{"id": id}, nil
		},
	})

	ez.RegisterAction(e, m.db, ez.Action[struct{}, downloadOut]{
		Method: http.MethodPost, Path: "/photos/:id/download", Binder: ez.BindNone, UseTx: true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (downloadOut, error) {
			var p domain.Photo
			err := tx.Select("id", "image_url", "allow_download").
				First(&p, "id = ? AND status = ?", c.Param("id"), domain.StatusPublished).Error
			if err != nil {
				if repo.IsNotFound(err) {
					return downloadOut{}, errPhotoNotFound
				}
				return downloadOut{}, ez.Internal("load photo", err)
			}
			if !p.AllowDownload {
				return downloadOut{}, ez.Forbidden("download not allowed")
			}
			err = tx.Model(&domain.Photo{}).Where("id = ?", p.ID).
				UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
			if err != nil {
				return downloadOut{}, ez.Internal("count download", err)
			}
			out := downloadOut{URL: p.ImageURL}
			err = tx.Model(&domain.Photo{}).Select("download_count").Where("id = ?", p.ID).Scan(&out.DownloadCount).Error
			if err != nil {
				return downloadOut{}, ez.Internal("read download count", err)
			}
			return out, nil
		},
	})
}

func (m *Module) mountAdminPhotos(e ez.EZ) {
	ez.RegisterAction(e, m.db, ez.Action[adminPhotoListQ, ez.PageResult[domain.Photo]]{
		Method: http.MethodGet, Path: "/photos", Binder: ez.BindQuery, Perm: domain.PermPhotoEdit,
		Handler: func(c *gin.Context, tx *gorm.DB, in *adminPhotoListQ) (ez.PageResult[domain.Photo], error) {
			return listPhotos(c.Request.Context(), tx, &in.photoListQ, domain.PublishStatus(in.Status))
		},
	})
}

func listPhotos(ctx context.Context, tx *gorm.DB, in *photoListQ, status domain.PublishStatus) (ez.PageResult[domain.Photo], error) {
	in.Normalize()
	q := tx.Model(&domain.Photo{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if in.CategoryID != "" {
		q = q.Where("category_id = ?", in.CategoryID)
	}
	if in.TagID != "" {
		q = q.Where("id IN (?)", tx.Model(&photoTag{}).Select("photo_id").Where("tag_id = ?", in.TagID))
	}
	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("(title LIKE ? OR description LIKE ? OR location LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ez.PageResult[domain.Photo]{}, ez.Internal("count photos", err)
	}
	var list []domain.Photo
	err := q.Preload("Category").Preload("Tags").
		Order("created_at DESC").
		Offset(in.Offset()).Limit(in.PageSize).
		Find(&list).Error
	if err != nil {
		return ez.PageResult[domain.Photo]{}, ez.Internal("list photos", err)
	}
	if err := attachAuthors(ctx, tx, list); err != nil {
		return ez.PageResult[domain.Photo]{}, ez.Internal("load authors", err)
	}
	return ez.NewPage(list, total, in.PageQuery), nil
}

func loadPhoto(ctx context.Context, tx *gorm.DB, id string) (*domain.Photo, error) {
	var p domain.Photo
	if err := tx.Preload("Category").Preload("Tags").First(&p, "id = ?", id).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, errPhotoNotFound
		}
		return nil, ez.Internal("load photo", err)
	}
	list := []domain.Photo{p}
	if err := attachAuthors(ctx, tx, list); err != nil {
		return nil, ez.Internal("load author", err)
	}
	return &list[0], nil
}

func attachAuthors(ctx context.Context, tx *gorm.DB, photos []domain.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	ids := make([]string, 0, len(photos))
	for i := range photos {
		ids = append(ids, photos[i].AuthorID)
	}
	authors, err := repo.NewUserRepo(tx).Authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range photos {
		photos[i].Author = authors[photos[i].AuthorID]
	}
	return nil
}

// checkRefs 分类必须是摄影分类，标签必须都存在
func checkRefs(tx *gorm.DB, in *photoIn) error {
	if in.CategoryID != "" {
		var n int64
		err := tx.Model(&domain.Category{}).
			Where("id = ? AND type = ?", in.CategoryID, domain.CategoryPhoto).
			Count(&n).Error
		if err != nil {
			return ez.Internal("check category", err)
		}
		if n == 0 {
			return ez.BadRequest("category not found")
		}
	}
	if in.TagIDs == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in.TagIDs))
	ids := make([]string, 0, len(in.TagIDs))
	for _, id := range in.TagIDs {
		if _, ok := seen[id]; !ok && id != "" {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	in.TagIDs = ids
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&domain.Tag{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return ez.Internal("check tags", err)
	}
	if int(n) != len(ids) {
		return ez.BadRequest("tag not found")
	}
	return nil
}

func replaceTags(tx *gorm.DB, photoID string, tagIDs []string) error {
	if err := tx.Where("photo_id = ?", photoID).Delete(&photoTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]photoTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, photoTag{PhotoID: photoID, TagID: id})
	}
	return tx.Create(&rows).Error
}
