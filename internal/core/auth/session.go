// Package auth 驗證存取權杖並在 context 中傳遞目前的使用者 session。
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMissingSession 請求沒有附帶有效的 session
	ErrMissingSession = errors.New("missing session: sign in required")
	// ErrSessionExpired 權杖已過期
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession 權杖格式或簽章錯誤
	ErrInvalidSession = errors.New("invalid session token")
)

// Session 已驗證的使用者
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

type sessionKey struct{}

type sessionResult struct {
	session Session
	err     error
}

// WithSession 將 session 放入 context
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionResult{session: s})
}

// WithSessionError 記錄 session 驗證失敗的原因，交由下游決定如何回應
func WithSessionError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionResult{err: err})
}

// FromContext 取出 session
func FromContext(ctx context.Context) (Session, error) {
	res, ok := ctx.Value(sessionKey{}).(sessionResult)
	if !ok {
		return Session{}, ErrMissingSession
	}
	if res.err != nil {
		return Session{}, res.err
	}
	return res.session, nil
}

// ContextProvider 從請求 context 取得 session
type ContextProvider struct{}

// CurrentSession 回傳目前 session，沒有或已失效時回傳錯誤
func (ContextProvider) CurrentSession(ctx context.Context) (Session, error) {
	return FromContext(ctx)
}

// StaticProvider 固定回傳同一個 session，供 CLI 使用
type StaticProvider struct {
	Session Session
}

// CurrentSession 回傳固定的 session
func (p StaticProvider) CurrentSession(context.Context) (Session, error) {
	if strings.TrimSpace(p.Session.UserID) == "" {
		return Session{}, ErrMissingSession
	}
	return p.Session, nil
}

// BearerToken 從 Authorization 標頭取出權杖
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
