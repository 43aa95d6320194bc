package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wylm-portal/internal/domain"
)

// TargetExists 评论/点赞的目标是否存在
func TargetExists(ctx context.Context, db *gorm.DB, t domain.TargetType, id string) (bool, error) {
	model := domain.TargetModel(t)
	if model == nil {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// PurgeTarget 删除目标时一并清理其评论、点赞，以及这些评论上的点赞
func PurgeTarget(ctx context.Context, tx *gorm.DB, t domain.TargetType, id string) error {
	tx = tx.WithContext(ctx)
	commentIDs := tx.Model(&domain.Comment{}).Select("id").
		Where("target_type = ? AND target_id = ?", t, id)
	if err := tx.Where("target_type = ? AND target_id IN (?)", domain.TargetComment, commentIDs).
		Delete(&domain.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("target_type = ? AND target_id = ?", t, id).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("target_type = ? AND target_id = ?", t, id).Delete(&domain.Like{}).Error
}

// IsNotFound gorm 的未找到错误
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
