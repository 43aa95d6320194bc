package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wylm-portal/pkg/utils"
)

const (
	RoleSuperAdmin = "super-admin"
	RoleEditor     = "editor"
	RoleUser       = "user"
	RoleGuest      = "guest"
)

// 权限码：module:action
const (
	PermSystemConfig = "system:config"

	PermUserManage       = "user:manage"
	PermRoleManage       = "role:manage"
	PermPermissionManage = "permission:manage"

	PermPostView       = "post:view"
	PermPostCreate     = "post:create"
	PermPostEdit       = "post:edit"
	PermPostDelete     = "post:delete"
	PermCategoryManage = "category:manage"
	PermTagManage      = "tag:manage"

	PermPhotoView   = "photo:view"
	PermPhotoUpload = "photo:upload"
	PermPhotoEdit   = "photo:edit"
	PermPhotoDelete = "photo:delete"
	PermAlbumManage = "album:manage"

	PermProductView   = "product:view"
	PermProductCreate = "product:create"
	PermProductEdit   = "product:edit"
	PermProductDelete = "product:delete"

	PermCommentView   = "comment:view"
	PermCommentCreate = "comment:create"
	PermCommentAudit  = "comment:audit"
	PermCommentDelete = "comment:delete"

	PermLikeCreate     = "like:create"
	PermFavoriteCreate = "favorite:create"
	PermDonationCreate = "donation:create"

	PermOrderView   = "order:view"
	PermOrderManage = "order:manage"
)

type Role struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Permissions []string `gorm:"-" json:"permissions,omitempty"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.NewID()
	}
	return nil
}

type Permission struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Module      string    `gorm:"size:32;index" json:"module"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Permission) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

// UserRole 复合主键保证 (user_id, role_id) 唯一
type UserRole struct {
	UserID    string    `gorm:"primaryKey;size:32" json:"userId"`
	RoleID    string    `gorm:"primaryKey;size:32;index" json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
}

type RolePermission struct {
	RoleID       string    `gorm:"primaryKey;size:32" json:"roleId"`
	PermissionID string    `gorm:"primaryKey;size:32;index" json:"permissionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RBACRepository interface {
	RolesOfUser(ctx context.Context, userID string) ([]Role, error)
	RoleNamesOfUsers(ctx context.Context, userIDs []string) (map[string][]string, error)
	PermissionsOfUser(ctx context.Context, userID string) ([]Permission, error)
	UserHasPermission(ctx context.Context, userID, code string) (bool, error)

	FindRoleByName(ctx context.Context, name string) (*Role, error)
	FindRoleByID(ctx context.Context, id string) (*Role, error)
	FindPermissionByID(ctx context.Context, id string) (*Permission, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)

	AssignRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	GrantPermission(ctx context.Context, roleID, permissionID string) error
	RevokePermission(ctx context.Context, roleID, permissionID string) error

	// EnsureRole / EnsurePermission 按唯一键插入，已存在则不改动，回填 ID
	EnsureRole(ctx context.Context, r *Role) error
	EnsurePermission(ctx context.Context, p *Permission) error
}
