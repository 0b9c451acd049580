package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"recipe-parser/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ratelimit:parse:"

// RedisOptions Redis 連線設定
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore 以 sorted set 記錄事件：score 為毫秒時間戳，member 唯一。
// 多個服務實例共用同一份計數。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 創建 Redis 儲存並測試連線
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

// CountSince 統計 since 之後（含）的事件數
func (s *RedisStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, redisKey(userID), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rate limit events: %w", err)
	}
	return int(n), nil
}

// Append 新增一筆事件
func (s *RedisStore) Append(ctx context.Context, userID string, success bool, at time.Time) error {
	member := fmt.Sprintf("%s:%t", common.GenerateUUID(), success)
	err := s.client.ZAdd(ctx, redisKey(userID), &redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append rate limit event: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
