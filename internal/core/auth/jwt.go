package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 所有校验失败（格式/过期/签名）统一返回它，调用方不区分原因
var ErrTokenInvalid = errors.New("invalid token")

type Claims struct {
	UserID string   `json:"userId"`
	Phone  string   `json:"phone"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	now    func() time.Time
}

func NewJWTer(secret, issuer string, ttl time.Duration) *JWTer {
	return &JWTer{Secret: []byte(secret), Issuer: issuer, TTL: ttl}
}

func (j *JWTer) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now()
}

// Issue 签发 HS256 token
func (j *JWTer) Issue(userID, phone string, roles []string) (string, error) {
	now := j.clock()
	claims := Claims{
		UserID: userID,
		Phone:  phone,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

// Parse 校验签名与过期时间
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return c, nil
}

// Decode 只解析不验签，仅用于展示/排查，禁止用于鉴权
func (j *JWTer) Decode(tokenStr string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return &c, nil
}
