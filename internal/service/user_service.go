package service

import (
	"context"
	"errors"
	"time"

	"wylm-portal/internal/domain"
)

// UserView 对外用户结构，不含密码哈希
type UserView struct {
	ID          string            `json:"id"`
	Phone       string            `json:"phone"`
	Nickname    string            `json:"nickname"`
	Avatar      string            `json:"avatar"`
	Bio         string            `json:"bio"`
	Status      domain.UserStatus `json:"status"`
	Roles       []string          `json:"roles"`
	LastLoginAt *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func ToUserView(u *domain.User, roles []string) UserView {
	if roles == nil {
		roles = []string{}
	}
	return UserView{
		ID:          u.ID,
		Phone:       u.Phone,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		Bio:         u.Bio,
		Status:      u.Status,
		Roles:       roles,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// UserService 后台用户管理
type UserService struct {
	users domain.UserRepository
	rbac  domain.RBACRepository
}

func NewUserService(users domain.UserRepository, rbac domain.RBACRepository) *UserService {
	return &UserService{users: users, rbac: rbac}
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter) ([]UserView, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roles, err := s.rbac.RoleNamesOfUsers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, ToUserView(&users[i], roles[users[i].ID]))
	}
	return out, total, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*UserView, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	roles, err := s.rbac.RoleNamesOfUsers(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	v := ToUserView(u, roles[id])
	return &v, nil
}

func (s *UserService) SetStatus(ctx context.Context, id string, st domain.UserStatus) error {
	if !st.Valid() {
		return ErrInvalidStatus
	}
	err := s.users.UpdateStatus(ctx, id, st)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *UserService) AssignRole(ctx context.Context, userID, roleID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	role, err := s.rbac.FindRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	return s.rbac.AssignRole(ctx, userID, roleID)
}

func (s *UserService) RevokeRole(ctx context.Context, userID, roleID string) error {
	err := s.rbac.RevokeRole(ctx, userID, roleID)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrRoleNotFound
	}
	return err
}
