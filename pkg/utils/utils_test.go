package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		pw   string
		want error
	}{
		{"short1A", ErrPasswordTooShort},
		{"", ErrPasswordTooShort},
		{"ALLUPPER123", ErrPasswordNoLower},
		{"alllowercase1", ErrPasswordNoUpper},
		{"NoDigitsHere", ErrPasswordNoDigit},
		{"short", ErrPasswordTooShort}, // 多条不满足时只报第一条
		{"Valid123", nil},
		{"Admin123456", nil},
		{"Aa1" + strings.Repeat("x", 80), ErrPasswordTooLong},
		// 非 ASCII 字母和数字不计入字符类
		{"abcdefgÉ1", ErrPasswordNoUpper},
		{"ABCDEFGé1", ErrPasswordNoLower},
		{"Abcdefgh١", ErrPasswordNoDigit},
		{"Pässwort12", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			if got := ValidateStrength(tt.pw); !errors.Is(got, tt.want) {
				t.Errorf("ValidateStrength(%q) = %v, want %v", tt.pw, got, tt.want)
			}
		})
	}
}

func TestHasherRoundTripAndSalt(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	a, err := h.Hash(ctx, "Valid123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash(ctx, "Valid123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ (salt)")
	}
	if len(a) != len(b) {
		t.Errorf("hash lengths differ: %d vs %d", len(a), len(b))
	}
	if !h.Verify(ctx, "Valid123", a) || !h.Verify(ctx, "Valid123", b) {
		t.Fatal("Verify(p, Hash(p)) must be true")
	}
	if h.Verify(ctx, "Valid124", a) {
		t.Fatal("Verify with wrong password must be false")
	}
	if h.Verify(ctx, "Valid123", "not-a-bcrypt-hash") {
		t.Fatal("Verify with malformed hash must be false")
	}
	if h.VerifyDummy(ctx, "whatever") {
		t.Fatal("VerifyDummy must be false")
	}
}

func TestHasherCancelled(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// 占满信号量，让 Acquire 只能看到 ctx 已取消
	_ = h.sem.Acquire(context.Background(), 1)
	defer h.sem.Release(1)

	if _, err := h.Hash(ctx, "Valid123"); !errors.Is(err, ErrPasswordHashBusy) {
		t.Fatalf("Hash err = %v, want ErrPasswordHashBusy", err)
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"13900000001", true},
		{"13800138000", true},
		{"19912345678", true},
		{"12345678901", false}, // 第二位是 2
		{"1381234567", false},  // 10 位
		{"138123456789", false},
		{"23800138000", false},
		{"1380013800a", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidPhone(tt.in); got != tt.want {
			t.Errorf("ValidPhone(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidCodeAndSlug(t *testing.T) {
	if !ValidCode("012345") || ValidCode("12345") || ValidCode("1234567") || ValidCode("12a456") {
		t.Error("ValidCode mismatch")
	}
	if !ValidSlug("still-life") || ValidSlug("Still Life") || ValidSlug("-x") || ValidSlug("") {
		t.Error("ValidSlug mismatch")
	}
}

func TestNewNumericCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		c, err := NewNumericCode(6)
		if err != nil {
			t.Fatalf("NewNumericCode: %v", err)
		}
		if !ValidCode(c) {
			t.Fatalf("code %q is not 6 digits", c)
		}
	}
}

func TestHelpers(t *testing.T) {
	if got := DefaultNickname("13900000001"); got != "用户0001" {
		t.Errorf("DefaultNickname = %q", got)
	}
	if got := MaskPhone("13800138000"); got != "138****8000" {
		t.Errorf("MaskPhone = %q", got)
	}
	if id := NewID(); len(id) != 32 || strings.Contains(id, "-") {
		t.Errorf("NewID = %q", id)
	}
}
