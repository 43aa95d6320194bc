package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"wylm-portal/internal/domain"
	"wylm-portal/pkg/utils"
)

const (
	PurposeRegister = "register"
	PurposeLogin    = "login"

	LoginByPassword = "password"
	LoginByCode     = "code"
)

// CodeStore 一次性验证码：Put 负责按手机号限频，Consume 成功后即失效
type CodeStore interface {
	Put(ctx context.Context, phone, purpose, code string, ttl time.Duration) error
	Consume(ctx context.Context, phone, purpose, code string) (bool, error)
}

// TokenIssuer auth.JWTer 实现
type TokenIssuer interface {
	Issue(userID, phone string, roles []string) (string, error)
}

type CodeSender interface {
	SendCode(ctx context.Context, phone, purpose, code string) error
}

type AuthConfig struct {
	CodeTTL     time.Duration
	DefaultRole string
	ExposeCode  bool // 非生产环境才允许在响应里带回验证码
}

type AuthService struct {
	users  domain.UserRepository
	rbac   *RBACService
	hasher *utils.Hasher
	tokens TokenIssuer
	codes  CodeStore
	sender CodeSender
	cfg    AuthConfig
	log    *zap.Logger
}

func NewAuthService(
	users domain.UserRepository,
	rbac *RBACService,
	hasher *utils.Hasher,
	tokens TokenIssuer,
	codes CodeStore,
	sender CodeSender,
	cfg AuthConfig,
	l *zap.Logger,
) *AuthService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleUser
	}
	return &AuthService{
		users: users, rbac: rbac, hasher: hasher, tokens: tokens,
		codes: codes, sender: sender, cfg: cfg, log: l,
	}
}

type RegisterInput struct {
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
	Nickname         string `json:"nickname"`
}

type LoginInput struct {
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
	LoginType        string `json:"loginType"`
}

type AuthResult struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { observe("register", err) }()

	phone := strings.TrimSpace(in.Phone)
	code := strings.TrimSpace(in.VerificationCode)
	if phone == "" || in.Password == "" || code == "" {
		return nil, ErrMissingFields
	}
	if !utils.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if !utils.ValidCode(code) {
		return nil, ErrInvalidCodeFormat
	}
	if err := utils.ValidateStrength(in.Password); err != nil {
		return nil, err
	}

	ok, err := s.codes.Consume(ctx, phone, PurposeRegister, code)
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	// 预检只是快速路径，并发注册最终由手机号唯一索引兜底
	existing, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrPhoneRegistered
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	nickname := strings.TrimSpace(in.Nickname)
	if nickname == "" {
		nickname = utils.DefaultNickname(phone)
	}
	u := &domain.User{
		Phone:        phone,
		PasswordHash: hash,
		Nickname:     nickname,
		Status:       domain.UserActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrPhoneRegistered
		}
		return nil, err
	}

	var roles []string
	assigned, err := s.rbac.AssignDefaultRole(ctx, u.ID, s.cfg.DefaultRole)
	if err != nil {
		s.log.Warn("assign default role failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	if assigned {
		roles = []string{s.cfg.DefaultRole}
	}

	token, err := s.tokens.Issue(u.ID, u.Phone, roles)
	if err != nil {
		// 注册失败不留半成品账号
		if derr := s.users.Discard(context.WithoutCancel(ctx), u.ID); derr != nil {
			s.log.Error("discard half-registered user failed", zap.String("user_id", u.ID), zap.Error(derr))
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("phone", utils.MaskPhone(phone)))
	return &AuthResult{User: ToUserView(u, roles), Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (res *AuthResult, err error) {
	defer func() { observe("login", err) }()

	phone := strings.TrimSpace(in.Phone)
	if phone == "" || in.LoginType == "" {
		return nil, ErrMissingFields
	}
	if !utils.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		// 与密码错误返回同一条信息，耗时也对齐
		if in.LoginType == LoginByPassword && in.Password != "" {
			s.hasher.VerifyDummy(ctx, in.Password)
		}
		return nil, ErrInvalidCredentials
	}
	switch u.Status {
	case domain.UserBanned:
		return nil, ErrUserBanned
	case domain.UserInactive:
		return nil, ErrUserInactive
	}

	switch in.LoginType {
	case LoginByPassword:
		if in.Password == "" {
			return nil, ErrPasswordRequired
		}
		if !s.hasher.Verify(ctx, in.Password, u.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
	case LoginByCode:
		code := strings.TrimSpace(in.VerificationCode)
		if code == "" {
			return nil, ErrCodeRequired
		}
		if !utils.ValidCode(code) {
			return nil, ErrInvalidCodeFormat
		}
		ok, err := s.codes.Consume(ctx, phone, PurposeLogin, code)
		if err != nil {
			return nil, fmt.Errorf("consume code: %w", err)
		}
		if !ok {
			return nil, ErrInvalidCode
		}
	default:
		return nil, ErrUnsupportedLogin
	}

	roles, err := s.rbac.RoleNames(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	token, err := s.tokens.Issue(u.ID, u.Phone, roles)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := time.Now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("update last login failed", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	return &AuthResult{User: ToUserView(u, roles), Token: token}, nil
}

// SendCode 返回的验证码只在 ExposeCode 打开时非空
func (s *AuthService) SendCode(ctx context.Context, phone, purpose string) (code string, err error) {
	defer func() { observe("send_code", err) }()

	phone = strings.TrimSpace(phone)
	if phone == "" || purpose == "" {
		return "", ErrMissingFields
	}
	if !utils.ValidPhone(phone) {
		return "", ErrInvalidPhone
	}
	if purpose != PurposeRegister && purpose != PurposeLogin {
		return "", ErrUnsupportedPurpose
	}

	code, err = utils.NewNumericCode(6)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := s.codes.Put(ctx, phone, purpose, code, s.cfg.CodeTTL); err != nil {
		return "", err
	}
	if err := s.sender.SendCode(ctx, phone, purpose, code); err != nil {
		return "", fmt.Errorf("deliver code: %w", err)
	}
	if !s.cfg.ExposeCode {
		return "", nil
	}
	return code, nil
}

// Me 当前用户资料 + 角色名
func (s *AuthService) Me(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	roles, err := s.rbac.RoleNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := ToUserView(u, roles)
	return &v, nil
}
