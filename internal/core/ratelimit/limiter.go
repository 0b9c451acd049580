// Package ratelimit 依使用者統計解析次數，以滾動的 1 小時與 1 天視窗限制用量。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// DefaultHourly 每小時上限
	DefaultHourly = 5
	// DefaultDaily 每日上限
	DefaultDaily = 15

	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Store 解析事件的持久化儲存，只新增、不修改也不刪除
type Store interface {
	// CountSince 統計 since 之後（含）該使用者的事件數
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	// Append 新增一筆事件
	Append(ctx context.Context, userID string, success bool, at time.Time) error
	// Ping 檢查儲存是否可用
	Ping(ctx context.Context) error
	// Close 釋放連線
	Close() error
}

// Limits 限流門檻
type Limits struct {
	Hourly int
	Daily  int
	// ChargeFailures 失敗的嘗試是否也計入額度（預設 true）
	ChargeFailures bool
}

// DefaultLimits 預設門檻
func DefaultLimits() Limits {
	return Limits{Hourly: DefaultHourly, Daily: DefaultDaily, ChargeFailures: true}
}

// Limiter 以 Store 的計數結果判斷是否超出限制。
// 併發請求可能同時通過邊界檢查，這是軟限制。
type Limiter struct {
	store  Store
	limits Limits
	now    func() time.Time
}

// Option 設定 Limiter
type Option func(*Limiter)

// WithClock 替換時間來源（測試用）
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter 創建限流器
func NewLimiter(store Store, limits Limits, opts ...Option) *Limiter {
	l := &Limiter{store: store, limits: limits, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit 回傳違規訊息；未超限時回傳空字串。
// 計數查詢失敗時放行，可用性優先於嚴格限制。
func (l *Limiter) CheckLimit(ctx context.Context, userID string) string {
	now := l.now()

	hourly, err := l.store.CountSince(ctx, userID, now.Add(-hourWindow))
	if err != nil {
		common.LogWarn("限流計數失敗，放行請求",
			zap.String("user_id", userID),
			zap.String("window", "hour"),
			zap.Error(err),
		)
		return ""
	}
	if hourly >= l.limits.Hourly {
		return fmt.Sprintf("Hourly limit reached: you can import up to %d recipes per hour. Please try again later.", l.limits.Hourly)
	}

	daily, err := l.store.CountSince(ctx, userID, now.Add(-dayWindow))
	if err != nil {
		common.LogWarn("限流計數失敗，放行請求",
			zap.String("user_id", userID),
			zap.String("window", "day"),
			zap.Error(err),
		)
		return ""
	}
	if daily >= l.limits.Daily {
		return fmt.Sprintf("Daily limit reached: you can import up to %d recipes per day. Please try again tomorrow.", l.limits.Daily)
	}

	return ""
}

// RecordAttempt 記錄一次解析嘗試；寫入失敗只記錄日誌
func (l *Limiter) RecordAttempt(ctx context.Context, userID string, success bool) {
	if !success && !l.limits.ChargeFailures {
		return
	}
	if err := l.store.Append(ctx, userID, success, l.now()); err != nil {
		common.LogError("寫入限流紀錄失敗",
			zap.String("user_id", userID),
			zap.Bool("success", success),
			zap.Error(err),
		)
	}
}

// Limits 回傳目前門檻
func (l *Limiter) Limits() Limits {
	return l.limits
}
