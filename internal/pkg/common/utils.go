package common

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context，供下游日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 取出請求 ID，沒有時回傳空字串
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// CollapseWhitespace 將連續空白（含換行、tab）合併為單一空格
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes 依字元數截斷字串，不會切斷多位元組字元
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
