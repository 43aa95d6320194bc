package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRe = regexp.MustCompile(`^1[3-9]\d{9}$`)
	codeRe  = regexp.MustCompile(`^\d{6}$`)
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ValidPhone 中国大陆手机号：1 开头，第二位 3-9，共 11 位
func ValidPhone(s string) bool { return phoneRe.MatchString(s) }

// ValidCode 6 位数字验证码
func ValidCode(s string) bool { return codeRe.MatchString(s) }

func ValidSlug(s string) bool { return len(s) <= 128 && slugRe.MatchString(s) }

// MaskPhone 138****8000
func MaskPhone(s string) string {
	if len(s) < 7 {
		return strings.Repeat("*", len(s))
	}
	return s[:3] + "****" + s[len(s)-4:]
}

// DefaultNickname 未填昵称时取手机号后 4 位
func DefaultNickname(phone string) string {
	if len(phone) < 4 {
		return "用户"
	}
	return "用户" + phone[len(phone)-4:]
}
