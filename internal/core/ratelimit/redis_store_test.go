package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "ratelimit:parse:baker-1", redisKey("baker-1"))
}
