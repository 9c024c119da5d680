package vouchercode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// 去掉易混淆字符（0/O、1/I/L）
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// 代金券码分段长度：XXXX-XXXX-XXXX
const (
	segmentLen   = 4
	segmentCount = 3
)

// Generate 生成一个代金券码，形如 7FKQ-M3ZD-A9XW
func Generate() (string, error) {
	raw := make([]byte, segmentLen*segmentCount)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	for i, b := range raw {
		if i > 0 && i%segmentLen == 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}
	return sb.String(), nil
}

// Normalize 规整用户输入的券码（去空格、统一大写）
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
