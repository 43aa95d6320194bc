package utils

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNoLower  = errors.New("password must contain a lowercase letter")
	ErrPasswordNoUpper  = errors.New("password must contain an uppercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain a digit")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordHashBusy = errors.New("password hashing cancelled")
)

const PasswordMinLen = 8

// ValidateStrength 返回第一个不满足的规则：长度 → 小写 → 大写 → 数字；字符类只认 ASCII
func ValidateStrength(pw string) error {
	if len([]rune(pw)) < PasswordMinLen {
		return ErrPasswordTooShort
	}
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		}
	}
	switch {
	case !lower:
		return ErrPasswordNoLower
	case !upper:
		return ErrPasswordNoUpper
	case !digit:
		return ErrPasswordNoDigit
	case len(pw) > 72: // bcrypt 上限
		return ErrPasswordTooLong
	}
	return nil
}

// IsPolicyError 是否为密码强度类错误（可直接返回给客户端）
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordNoLower) ||
		errors.Is(err, ErrPasswordNoUpper) || errors.Is(err, ErrPasswordNoDigit) ||
		errors.Is(err, ErrPasswordTooLong)
}

// Hasher bcrypt 哈希；用信号量限制同时计算数，避免 CPU 被哈希占满
type Hasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

func NewHasher(cost, parallel int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if parallel <= 0 {
		parallel = 1
	}
	h := &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(parallel))}
	// 用户不存在时也跑一次同成本比较，抹平耗时差
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return h
}

func (h *Hasher) Hash(ctx context.Context, pw string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", ErrPasswordHashBusy
	}
	defer h.sem.Release(1)
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 哈希格式错误或 ctx 取消时返回 false，不报错
func (h *Hasher) Verify(ctx context.Context, pw, hashed string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// VerifyDummy 对不存在的用户做一次等成本比较，结果恒为 false
func (h *Hasher) VerifyDummy(ctx context.Context, pw string) bool {
	_ = h.Verify(ctx, pw, string(h.dummy))
	return false
}
