package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wylm-portal/internal/domain"
)

type RBACRepo struct{ db *gorm.DB }

var _ domain.RBACRepository = (*RBACRepo)(nil)

func NewRBACRepo(db *gorm.DB) *RBACRepo { return &RBACRepo{db: db} }

func (r *RBACRepo) RolesOfUser(ctx context.Context, userID string) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name").
		Find(&roles).Error
	return roles, err
}

func (r *RBACRepo) RoleNamesOfUsers(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		UserID string
		Name   string
	}
	err := r.db.WithContext(ctx).Table("user_roles ur").
		Select("ur.user_id, r.name").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.user_id IN ?", userIDs).
		Order("r.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Name)
	}
	return out, nil
}

// PermissionsOfUser 所有角色权限的并集（子查询天然去重）
func (r *RBACRepo) PermissionsOfUser(ctx context.Context, userID string) ([]domain.Permission, error) {
	sub := r.db.WithContext(ctx).Table("role_permissions rp").
		Select("rp.permission_id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID)

	var perms []domain.Permission
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("code").
		Find(&perms).Error
	return perms, err
}

func (r *RBACRepo) UserHasPermission(ctx context.Context, userID, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("permissions p").
		Joins("JOIN role_permissions rp ON rp.permission_id = p.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ? AND p.code = ?", userID, code).
		Count(&n).Error
	return n > 0, err
}

func (r *RBACRepo) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return firstOrNil[domain.Role](r.db.WithContext(ctx).Where("name = ?", name))
}

func (r *RBACRepo) FindRoleByID(ctx context.Context, id string) (*domain.Role, error) {
	return firstOrNil[domain.Role](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *RBACRepo) FindPermissionByID(ctx context.Context, id string) (*domain.Permission, error) {
	return firstOrNil[domain.Permission](r.db.WithContext(ctx).Where("id = ?", id))
}

// ListRoles 附带每个角色的权限码
func (r *RBACRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := r.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		RoleID string
		Code   string
	}
	err := r.db.WithContext(ctx).Table("role_permissions rp").
		Select("rp.role_id, p.code").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Order("p.code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byRole := make(map[string][]string, len(roles))
	for _, row := range rows {
		byRole[row.RoleID] = append(byRole[row.RoleID], row.Code)
	}
	for i := range roles {
		roles[i].Permissions = byRole[roles[i].ID]
	}
	return roles, nil
}

func (r *RBACRepo) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	var perms []domain.Permission
	err := r.db.WithContext(ctx).Order("module, code").Find(&perms).Error
	return perms, err
}

// AssignRole 幂等：重复分配不报错
func (r *RBACRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.UserRole{UserID: userID, RoleID: roleID}).Error
}

func (r *RBACRepo) RevokeRole(ctx context.Context, userID, roleID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&domain.UserRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RBACRepo) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}

func (r *RBACRepo) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	res := r.db.WithContext(ctx).Where("role_id = ? AND permission_id = ?", roleID, permissionID).Delete(&domain.RolePermission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RBACRepo) EnsureRole(ctx context.Context, role *domain.Role) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(role).Error
	if err != nil {
		return err
	}
	// 冲突时 ID 是新生成的，需要回读库里的那一行
	var stored domain.Role
	if err := db.Where("name = ?", role.Name).First(&stored).Error; err != nil {
		return err
	}
	*role = stored
	return nil
}

func (r *RBACRepo) EnsurePermission(ctx context.Context, p *domain.Permission) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return err
	}
	var stored domain.Permission
	if err := db.Where("code = ?", p.Code).First(&stored).Error; err != nil {
		return err
	}
	*p = stored
	return nil
}

func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var v T
	err := q.First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
