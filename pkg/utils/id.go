package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewID 32 位无连字符 uuid，作为各表主键
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// NewNumericCode 生成 n 位数字验证码（crypto/rand）
func NewNumericCode(n int) (string, error) {
	const digits = "0123456789"
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		b[i] = digits[v.Int64()]
	}
	return string(b), nil
}
