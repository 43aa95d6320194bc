package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"wylm-portal/internal/core/database"
	"wylm-portal/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// Create 手机号唯一索引冲突时返回 domain.ErrDuplicate
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("create user: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Discard(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.User{}).Error
	})
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("phone LIKE ? OR nickname LIKE ?", like, like)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	var users []domain.User
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id string, s domain.UserStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("status", s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// mysql 值未变化时 RowsAffected 也是 0，再确认一次是否存在
		var n int64
		if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *UserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// Authors 批量取作者展示信息
func (r *UserRepo) Authors(ctx context.Context, ids []string) (map[string]*domain.Author, error) {
	out := make(map[string]*domain.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Author
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Select("id, nickname, avatar").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}
