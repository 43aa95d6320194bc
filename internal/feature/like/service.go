// Package like 点赞切换；计数与点赞记录在同一事务里维护
package like

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/domain"
	"wylm-portal/internal/repo"
	"wylm-portal/pkg/utils"
)

var (
	ErrTargetNotFound    = errors.New("target not found")
	ErrUnsupportedTarget = errors.New("unsupported target type")
)

type Result struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func likeable(t domain.TargetType) bool {
	return t == domain.TargetPost || t == domain.TargetPhoto || t == domain.TargetComment
}

// Toggle 已赞则取消，未赞则点赞。
// 并发点赞撞上唯一约束时视为已赞，不重复计数。
func (s *Service) Toggle(ctx context.Context, userID string, t domain.TargetType, targetID string) (Result, error) {
	if !likeable(t) {
		return Result{}, ErrUnsupportedTarget
	}
	model := domain.TargetModel(t)
	var out Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, t, targetID).
			Delete(&domain.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			out.Liked = false
			err := tx.Model(model).Where("id = ? AND like_count > 0", targetID).
				UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error
			if err != nil {
				return err
			}
			return readCount(tx, model, targetID, &out.LikeCount)
		}

		out.Liked = true
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Like{
			ID: utils.NewID(), UserID: userID, TargetType: t, TargetID: targetID,
		})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected > 0 {
			upd := tx.Model(model).Where("id = ?", targetID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", 1))
			if upd.Error != nil {
				return upd.Error
			}
			// 目标不存在：回滚刚插入的点赞
			if upd.RowsAffected == 0 {
				return ErrTargetNotFound
			}
		}
		return readCount(tx, model, targetID, &out.LikeCount)
	})
	if err != nil {
		return Result{}, err
	}
	return out, nil
}

// Check userID 为空（未登录）时 liked 恒为 false
func (s *Service) Check(ctx context.Context, userID string, t domain.TargetType, targetID string) (Result, error) {
	if !likeable(t) {
		return Result{}, ErrUnsupportedTarget
	}
	db := s.db.WithContext(ctx)
	ok, err := repo.TargetExists(ctx, db, t, targetID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrTargetNotFound
	}
	var out Result
	if err := readCount(db, domain.TargetModel(t), targetID, &out.LikeCount); err != nil {
		return Result{}, err
	}
	if userID == "" {
		return out, nil
	}
	var n int64
	err = db.Model(&domain.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, t, targetID).
		Count(&n).Error
	if err != nil {
		return Result{}, err
	}
	out.Liked = n > 0
	return out, nil
}

func readCount(db *gorm.DB, model any, id string, dst *int64) error {
	return db.Model(model).Select("like_count").Where("id = ?", id).Scan(dst).Error
}
