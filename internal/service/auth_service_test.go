package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"wylm-portal/internal/core/cache"
	"wylm-portal/internal/domain"
	"wylm-portal/pkg/utils"
)

func TestRegisterSuccess(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	res := e.register(t, "13800138000")
	if res.Token == "" {
		t.Fatal("empty token")
	}
	if res.User.Nickname != "用户8000" {
		t.Errorf("nickname = %q", res.User.Nickname)
	}
	if res.User.Status != domain.UserActive {
		t.Errorf("status = %s", res.User.Status)
	}
	if len(res.User.Roles) != 1 || res.User.Roles[0] != domain.RoleUser {
		t.Errorf("roles = %v", res.User.Roles)
	}
	claims, err := e.tokens.Parse(res.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Phone != "13800138000" {
		t.Errorf("claims = %+v", claims)
	}

	u, _ := e.users.FindByPhone(context.Background(), "13800138000")
	if u == nil || u.PasswordHash == testPassword || !e.hasher.Verify(context.Background(), testPassword, u.PasswordHash) {
		t.Fatal("password not stored as bcrypt hash")
	}
}

func TestRegisterRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing", RegisterInput{Phone: "13800138000"}, ErrMissingFields},
		{"bad phone", RegisterInput{Phone: "12345", Password: testPassword, VerificationCode: "123456"}, ErrInvalidPhone},
		{"bad code format", RegisterInput{Phone: "13800138000", Password: testPassword, VerificationCode: "12ab"}, ErrInvalidCodeFormat},
		{"weak password", RegisterInput{Phone: "13800138000", Password: "short", VerificationCode: "123456"}, utils.ErrPasswordTooShort},
		{"no upper", RegisterInput{Phone: "13800138000", Password: "password1", VerificationCode: "123456"}, utils.ErrPasswordNoUpper},
		{"wrong code", RegisterInput{Phone: "13800138000", Password: testPassword, VerificationCode: "123456"}, ErrInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.auth.Register(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
		})
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	e := newEnv(t, withCodes(acceptAll{}))
	e.seed(t)
	ctx := context.Background()

	in := RegisterInput{Phone: "13800138000", Password: testPassword, VerificationCode: "123456"}
	if _, err := e.auth.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := e.auth.Register(ctx, in); !errors.Is(err, ErrPhoneRegistered) {
		t.Fatalf("second register err = %v, want ErrPhoneRegistered", err)
	}
}

func TestRegisterCodeSingleUse(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	ctx := context.Background()

	code, err := e.auth.SendCode(ctx, "13800138000", PurposeRegister)
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	in := RegisterInput{Phone: "13800138000", Password: testPassword, VerificationCode: code}
	if _, err := e.auth.Register(ctx, in); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.auth.Register(ctx, in); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("reused code err = %v, want ErrInvalidCode", err)
	}
}

func TestRegisterConcurrentSamePhone(t *testing.T) {
	e := newEnv(t, withCodes(acceptAll{}))
	e.seed(t)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, dup int
		other   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.auth.Register(context.Background(), RegisterInput{
				Phone: "13900139000", Password: testPassword, VerificationCode: "654321",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrPhoneRegistered):
				dup++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dup != n-1 || len(other) != 0 {
		t.Fatalf("ok=%d dup=%d other=%v", ok, dup, other)
	}
	var count int64
	e.db.Model(&domain.User{}).Where("phone = ?", "13900139000").Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, string, []string) (string, error) {
	return "", errors.New("signer unavailable")
}

func TestRegisterTokenFailureLeavesNoUser(t *testing.T) {
	e := newEnv(t, withCodes(acceptAll{}))
	e.seed(t)
	svc := NewAuthService(e.users, e.rbacS, e.hasher, failingIssuer{}, e.codes, e.sender,
		AuthConfig{DefaultRole: domain.RoleUser}, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Phone: "13800138000", Password: testPassword, VerificationCode: "123456"}); err == nil {
		t.Fatal("register succeeded without a token")
	}
	if u, err := e.users.FindByPhone(ctx, "13800138000"); err != nil || u != nil {
		t.Fatalf("user left behind: %+v %v", u, err)
	}
	var bindings int64
	e.db.Model(&domain.UserRole{}).Count(&bindings)
	if bindings != 0 {
		t.Errorf("role bindings left: %d", bindings)
	}
	// 同一手机号随后仍可正常注册
	e.register(t, "13800138000")
}

func TestRegisterWithoutDefaultRole(t *testing.T) {
	// 未执行 seed，默认角色不存在
	e := newEnv(t, withCodes(acceptAll{}))
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Phone: "13700137000", Password: testPassword, VerificationCode: "123456", Nickname: "  阿明 ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(res.User.Roles) != 0 {
		t.Errorf("roles = %v, want none", res.User.Roles)
	}
	if res.User.Nickname != "阿明" {
		t.Errorf("nickname = %q", res.User.Nickname)
	}
	perms, err := e.rbacS.PermissionCodes(context.Background(), res.User.ID)
	if err != nil || len(perms) != 0 {
		t.Fatalf("perms = %v, err = %v", perms, err)
	}
}

func TestLoginPassword(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	reg := e.register(t, "13800138000")
	ctx := context.Background()

	res, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", Password: testPassword, LoginType: LoginByPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != reg.User.ID || res.User.LastLoginAt == nil {
		t.Errorf("user = %+v", res.User)
	}
	u, _ := e.users.FindByID(ctx, reg.User.ID)
	if u.LastLoginAt == nil {
		t.Error("lastLoginAt not persisted")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	e.register(t, "13800138000")
	ctx := context.Background()

	_, errWrong := e.auth.Login(ctx, LoginInput{Phone: "13800138000", Password: "Wrong0pass", LoginType: LoginByPassword})
	_, errMissing := e.auth.Login(ctx, LoginInput{Phone: "13800138999", Password: "Wrong0pass", LoginType: LoginByPassword})
	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errMissing, ErrInvalidCredentials) {
		t.Fatalf("wrong=%v missing=%v", errWrong, errMissing)
	}
	if errWrong.Error() != errMissing.Error() {
		t.Errorf("messages differ: %q vs %q", errWrong, errMissing)
	}
}

func TestLoginNoLockout(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	e.register(t, "13800138000")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", Password: "Wrong0pass", LoginType: LoginByPassword})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if _, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", Password: testPassword, LoginType: LoginByPassword}); err != nil {
		t.Fatalf("correct password after failures: %v", err)
	}
}

func TestLoginRejectsByStatus(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	reg := e.register(t, "13800138000")
	ctx := context.Background()

	for _, tc := range []struct {
		status domain.UserStatus
		want   error
	}{
		{domain.UserBanned, ErrUserBanned},
		{domain.UserInactive, ErrUserInactive},
	} {
		if err := e.users.UpdateStatus(ctx, reg.User.ID, tc.status); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		_, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", Password: testPassword, LoginType: LoginByPassword})
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestLoginInputErrors(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	e.register(t, "13800138000")
	ctx := context.Background()

	tests := []struct {
		name string
		in   LoginInput
		want error
	}{
		{"no type", LoginInput{Phone: "13800138000", Password: testPassword}, ErrMissingFields},
		{"bad type", LoginInput{Phone: "13800138000", LoginType: "wechat"}, ErrUnsupportedLogin},
		// 登录方式在查到用户之后才校验
		{"bad type unknown phone", LoginInput{Phone: "13800138999", LoginType: "wechat"}, ErrInvalidCredentials},
		{"bad type bad phone", LoginInput{Phone: "123", LoginType: "wechat"}, ErrInvalidPhone},
		{"bad phone", LoginInput{Phone: "123", LoginType: LoginByPassword, Password: testPassword}, ErrInvalidPhone},
		{"no password", LoginInput{Phone: "13800138000", LoginType: LoginByPassword}, ErrPasswordRequired},
		{"no code", LoginInput{Phone: "13800138000", LoginType: LoginByCode}, ErrCodeRequired},
		{"wrong code", LoginInput{Phone: "13800138000", LoginType: LoginByCode, VerificationCode: "000000"}, ErrInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.auth.Login(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoginByCode(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	reg := e.register(t, "13800138000")
	ctx := context.Background()

	// 注册码与登录码是不同用途，互不通用
	regCode, _ := e.auth.SendCode(ctx, "13800138001", PurposeRegister)
	if _, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", LoginType: LoginByCode, VerificationCode: regCode}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("register code used for login: %v", err)
	}

	code, err := e.auth.SendCode(ctx, "13800138000", PurposeLogin)
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	res, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", LoginType: LoginByCode, VerificationCode: code})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Errorf("user = %s, want %s", res.User.ID, reg.User.ID)
	}
	if _, err := e.auth.Login(ctx, LoginInput{Phone: "13800138000", LoginType: LoginByCode, VerificationCode: code}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("second use err = %v, want ErrInvalidCode", err)
	}
}

func TestSendCode(t *testing.T) {
	ctx := context.Background()

	t.Run("exposed in dev", func(t *testing.T) {
		e := newEnv(t)
		code, err := e.auth.SendCode(ctx, "13800138000", PurposeRegister)
		if err != nil {
			t.Fatalf("SendCode: %v", err)
		}
		if !utils.ValidCode(code) || code != e.sender.code("13800138000", PurposeRegister) {
			t.Fatalf("code = %q", code)
		}
	})

	t.Run("hidden when not exposed", func(t *testing.T) {
		e := newEnv(t, withExposeCode(false))
		code, err := e.auth.SendCode(ctx, "13800138000", PurposeLogin)
		if err != nil {
			t.Fatalf("SendCode: %v", err)
		}
		if code != "" {
			t.Fatalf("code leaked: %q", code)
		}
		if e.sender.code("13800138000", PurposeLogin) == "" {
			t.Fatal("code was not delivered")
		}
	})

	t.Run("rate limited per phone", func(t *testing.T) {
		e := newEnv(t, withCodes(cache.NewMemoryCodeStore(time.Hour)))
		if _, err := e.auth.SendCode(ctx, "13800138000", PurposeRegister); err != nil {
			t.Fatalf("first: %v", err)
		}
		if _, err := e.auth.SendCode(ctx, "13800138000", PurposeLogin); !errors.Is(err, ErrSendTooFrequent) {
			t.Fatalf("second err = %v, want ErrSendTooFrequent", err)
		}
		if _, err := e.auth.SendCode(ctx, "13800138001", PurposeRegister); err != nil {
			t.Fatalf("other phone: %v", err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		e := newEnv(t)
		if _, err := e.auth.SendCode(ctx, "", PurposeRegister); !errors.Is(err, ErrMissingFields) {
			t.Errorf("empty phone: %v", err)
		}
		if _, err := e.auth.SendCode(ctx, "1380013", PurposeRegister); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("bad phone: %v", err)
		}
		if _, err := e.auth.SendCode(ctx, "13800138000", "reset"); !errors.Is(err, ErrUnsupportedPurpose) {
			t.Errorf("bad purpose: %v", err)
		}
	})
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	reg := e.register(t, "13800138000")

	me, err := e.auth.Me(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Phone != "13800138000" || len(me.Roles) != 1 {
		t.Errorf("me = %+v", me)
	}
	if _, err := e.auth.Me(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}
