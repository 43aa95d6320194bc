package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wylm-portal/pkg/utils"
)

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
	UserBanned   UserStatus = "BANNED"
)

func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive || s == UserBanned
}

// User 不做物理删除，封禁/停用走 Status
type User struct {
	ID           string     `gorm:"primaryKey;size:32" json:"id"`
	Phone        string     `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	Nickname     string     `gorm:"size:64" json:"nickname"`
	Avatar       string     `gorm:"size:512" json:"avatar"`
	Bio          string     `gorm:"size:512" json:"bio"`
	Status       UserStatus `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return nil
}

// Author 对外展示的作者信息（不含手机号）
type Author struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type UserFilter struct {
	Q      string
	Status UserStatus
	Offset int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	UpdateStatus(ctx context.Context, id string, s UserStatus) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	// Discard 撤销一次未完成的注册（连同角色绑定），不用于删除正常账号
	Discard(ctx context.Context, id string) error
	Authors(ctx context.Context, ids []string) (map[string]*Author, error)
}
