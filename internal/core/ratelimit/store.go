package ratelimit

import (
	"context"
	"fmt"

	"recipe-parser/internal/infrastructure/config"
	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

// NewStore 依設定建立對應的儲存後端
func NewStore(ctx context.Context, cfg config.RateLimitConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		common.LogInfo("使用記憶體限流儲存")
		return NewMemoryStore(), nil
	case "redis":
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		common.LogInfo("使用 Redis 限流儲存", zap.String("addr", cfg.RedisAddr))
		return store, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		common.LogInfo("使用 SQLite 限流儲存", zap.String("path", cfg.SQLitePath))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

// LimitsFromConfig 從設定轉換門檻
func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	return Limits{Hourly: cfg.Hourly, Daily: cfg.Daily, ChargeFailures: cfg.ChargeFailures}
}
