// Package comment 评论：发表、审核、楼中楼回复
package comment

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
)

var (
	ErrTargetNotFound  = errors.New("target not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrParentMismatch  = errors.New("parent comment belongs to another target")
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyContent    = errors.New("content is required")
)

type CreateInput struct {
	Content    string            `json:"content" binding:"required,max=2000"`
	TargetType domain.TargetType `json:"targetType" binding:"required,oneof=POST PHOTO PRODUCT"`
	TargetID   string            `json:"targetId" binding:"required"`
	ParentID   string            `json:"parentId"`
}

type Filter struct {
	Status     domain.CommentStatus
	TargetType domain.TargetType
	Offset     int
	Limit      int
}

type Service struct {
	db           *gorm.DB
	requireAudit bool
}

// NewService requireAudit 为 true 时新评论进入待审核
func NewService(db *gorm.DB, requireAudit bool) *Service {
	return &Service{db: db, requireAudit: requireAudit}
}

// List 某个目标下已通过的顶层评论，带已通过的回复
func (s *Service) List(ctx context.Context, t domain.TargetType, targetID string, offset, limit int) ([]domain.Comment, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("target_type = ? AND target_id = ? AND parent_id IS NULL AND status = ?", t, targetID, domain.CommentApproved)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []domain.Comment
	err := q.Preload("Replies", func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", domain.CommentApproved).Order("created_at ASC")
	}).Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachAuthors(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// AdminList 后台按状态/类型筛选，含回复，不做嵌套
func (s *Service) AdminList(ctx context.Context, f Filter) ([]domain.Comment, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.Comment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []domain.Comment
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	if err := s.attachAuthors(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (*domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	c := domain.Comment{
		Content: content, AuthorID: authorID,
		TargetType: in.TargetType, TargetID: in.TargetID,
		Status: domain.CommentApproved,
	}
	if s.requireAudit {
		c.Status = domain.CommentPending
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TargetExists(ctx, tx, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTargetNotFound
		}
		if in.ParentID != "" {
			var parent domain.Comment
			if err := tx.First(&parent, "id = ?", in.ParentID).Error; err != nil {
				if repo.IsNotFound(err) {
					return ErrParentNotFound
				}
				return err
			}
			if parent.TargetType != in.TargetType || parent.TargetID != in.TargetID {
				return ErrParentMismatch
			}
			// 只保留两层：回复的回复挂到顶层评论下
			pid := parent.ID
			if parent.ParentID != nil {
				pid = *parent.ParentID
			}
			c.ParentID = &pid
		}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if c.Status == domain.CommentApproved {
			return adjustCount(tx, c.TargetType, c.TargetID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	list := []domain.Comment{c}
	if err := s.attachAuthors(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// SetStatus 审核；进出 APPROVED 时同步文章评论数
func (s *Service) SetStatus(ctx context.Context, id string, status domain.CommentStatus) (*domain.Comment, error) {
	var c domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			if repo.IsNotFound(err) {
				return ErrCommentNotFound
			}
			return err
		}
		if c.Status == status {
			return nil
		}
		var delta int64
		switch {
		case c.Status == domain.CommentApproved:
			delta = -1
		case status == domain.CommentApproved:
			delta = 1
		}
		if err := tx.Model(&c).Update("status", status).Error; err != nil {
			return err
		}
		c.Status = status
		return adjustCount(tx, c.TargetType, c.TargetID, delta)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete 连同回复、以及它们的点赞一起删除
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c domain.Comment
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			if repo.IsNotFound(err) {
				return ErrCommentNotFound
			}
			return err
		}
		var replies []domain.Comment
		if err := tx.Select("id", "status").Where("parent_id = ?", id).Find(&replies).Error; err != nil {
			return err
		}
		ids := []string{c.ID}
		var approved int64
		if c.Status == domain.CommentApproved {
			approved++
		}
		for _, r := range replies {
			ids = append(ids, r.ID)
			if r.Status == domain.CommentApproved {
				approved++
			}
		}

		if err := tx.Where("target_type = ? AND target_id IN ?", domain.TargetComment, ids).
			Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return adjustCount(tx, c.TargetType, c.TargetID, -approved)
	})
}

// adjustCount 目前只有文章维护评论数；减数不会把计数减成负数
func adjustCount(tx *gorm.DB, t domain.TargetType, id string, delta int64) error {
	if t != domain.TargetPost || delta == 0 {
		return nil
	}
	q := tx.Model(&domain.Post{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("comment_count >= ?", -delta)
	}
	return q.UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

func (s *Service) attachAuthors(ctx context.Context, list []domain.Comment) error {
	var ids []string
	for i := range list {
		ids = append(ids, list[i].AuthorID)
		for j := range list[i].Replies {
			ids = append(ids, list[i].Replies[j].AuthorID)
		}
	}
	authors, err := repo.NewUserRepo(s.db).Authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Author = authors[list[i].AuthorID]
		for j := range list[i].Replies {
			list[i].Replies[j].Author = authors[list[i].Replies[j].AuthorID]
		}
	}
	return nil
}
