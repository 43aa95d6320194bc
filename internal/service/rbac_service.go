package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wylm-portal/internal/domain"
)

// RBACService 角色/权限图：扁平结构，用户权限 = 所持角色权限的并集
type RBACService struct {
	repo domain.RBACRepository
	log  *zap.Logger
}

func NewRBACService(repo domain.RBACRepository, l *zap.Logger) *RBACService {
	return &RBACService{repo: repo, log: l}
}

func (s *RBACService) ResolveRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	return s.repo.RolesOfUser(ctx, userID)
}

func (s *RBACService) RoleNames(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// ResolvePermissions 所持角色权限的并集，不做继承
func (s *RBACService) ResolvePermissions(ctx context.Context, userID string) ([]domain.Permission, error) {
	return s.repo.PermissionsOfUser(ctx, userID)
}

func (s *RBACService) PermissionCodes(ctx context.Context, userID string) ([]string, error) {
	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

func (s *RBACService) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	if userID == "" || code == "" {
		return false, nil
	}
	return s.repo.UserHasPermission(ctx, userID, code)
}

// AssignDefaultRole 角色不存在时不报错，只记日志，用户保持无角色状态
func (s *RBACService) AssignDefaultRole(ctx context.Context, userID, roleName string) (bool, error) {
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return false, fmt.Errorf("find role %q: %w", roleName, err)
	}
	if role == nil {
		s.log.Warn("default role missing, user left without roles",
			zap.String("role", roleName), zap.String("user_id", userID))
		return false, nil
	}
	if err := s.repo.AssignRole(ctx, userID, role.ID); err != nil {
		return false, fmt.Errorf("assign role %q: %w", roleName, err)
	}
	return true, nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *RBACService) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.mustRolePerm(ctx, roleID, permissionID); err != nil {
		return err
	}
	return s.repo.GrantPermission(ctx, roleID, permissionID)
}

func (s *RBACService) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.mustRolePerm(ctx, roleID, permissionID); err != nil {
		return err
	}
	return s.repo.RevokePermission(ctx, roleID, permissionID)
}

func (s *RBACService) mustRolePerm(ctx context.Context, roleID, permissionID string) error {
	role, err := s.repo.FindRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	perm, err := s.repo.FindPermissionByID(ctx, permissionID)
	if err != nil {
		return err
	}
	if perm == nil {
		return ErrPermissionNotFound
	}
	return nil
}
