package auth

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := NewJWTer("s3cret", "wylm", 7*24*time.Hour)
	tok, err := j.Issue("u1", "13900000001", []string{"user", "editor"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.UserID != "u1" || c.Phone != "13900000001" || !reflect.DeepEqual(c.Roles, []string{"user", "editor"}) {
		t.Fatalf("claims = %+v", c)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != 7*24*time.Hour {
		t.Errorf("ttl = %v, want 7 days", got)
	}
}

func TestParseRejectsTampered(t *testing.T) {
	j := NewJWTer("s3cret", "wylm", time.Hour)
	tok, err := j.Issue("u1", "13900000001", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// 改 payload 中间的一个字符
	dot := strings.IndexByte(tok, '.')
	i := dot + 5
	b := []byte(tok)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	if _, err := j.Parse(string(b)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered token err = %v, want ErrTokenInvalid", err)
	}
}

func TestParseRejects(t *testing.T) {
	good := NewJWTer("s3cret", "wylm", time.Hour)
	tok, _ := good.Issue("u1", "13900000001", nil)

	expired := NewJWTer("s3cret", "wylm", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("u1", "13900000001", nil)

	tests := []struct {
		name  string
		j     *JWTer
		token string
	}{
		{"rotated secret", NewJWTer("other", "wylm", time.Hour), tok},
		{"other issuer", NewJWTer("s3cret", "someone", time.Hour), tok},
		{"expired", good, old},
		{"garbage", good, "not-a-token"},
		{"empty", good, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.j.Parse(tt.token)
			if c != nil || !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("Parse = (%v, %v), want (nil, ErrTokenInvalid)", c, err)
			}
		})
	}
}

func TestDecodeSkipsSignature(t *testing.T) {
	tok, _ := NewJWTer("s3cret", "wylm", time.Hour).Issue("u9", "13800138000", []string{"super-admin"})

	c, err := NewJWTer("different", "wylm", time.Hour).Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.UserID != "u9" || c.Roles[0] != "super-admin" {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := good().Decode("x.y"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Decode garbage err = %v", err)
	}
}

func good() *JWTer { return NewJWTer("s3cret", "wylm", time.Hour) }
