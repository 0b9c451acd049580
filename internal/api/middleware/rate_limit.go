package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bucket 單一來源的令牌桶
type bucket struct {
	tokens   float64
	lastTime time.Time
}

// RateLimiter 依 IP 的令牌桶限流器，只做粗略防護；每位使用者的解析額度另由 ratelimit 套件管理
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	rate     float64 // 每秒補充的令牌數
	now      func() time.Time

	// 每經過一個時間窗清掉已補滿的桶
	sweepEvery time.Duration
	lastSweep  time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(requests),
		rate:       float64(requests) / window.Seconds(),
		now:        time.Now,
		sweepEvery: window,
	}
}

// Allow 檢查 key 是否還有令牌
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.lastSweep.IsZero() {
		rl.lastSweep = now
	} else if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		rl.evictFull(now)
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.capacity, lastTime: now}
		rl.buckets[key] = b
	}

	// 補充令牌
	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens = math.Min(rl.capacity, b.tokens+elapsed*rl.rate)
	b.lastTime = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// evictFull 移除已補滿的桶；重新出現的來源會拿到同樣的滿桶
func (rl *RateLimiter) evictFull(now time.Time) {
	for k, b := range rl.buckets {
		if b.tokens+now.Sub(b.lastTime).Seconds()*rl.rate >= rl.capacity {
			delete(rl.buckets, k)
		}
	}
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds() / float64(requests))))

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", retryAfter)
			AbortWithError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
