package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-parser/internal/pkg/common"
)

const defaultDedupWindow = time.Second

var errDuplicateRequest = common.NewError(common.ErrCodeTooManyRequests, "Request too frequent", http.StatusTooManyRequests, nil)

// Deduplicator 擋下在時間窗內重複送出的相同 POST（例如使用者連點匯入）
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// NewDeduplicator 創建去重器並啟動背景清理；window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = defaultDedupWindow
	}
	d := &Deduplicator{
		window:   window,
		now:      time.Now,
		requests: make(map[string]time.Time),
		stop:     make(chan struct{}),
	}
	go d.startCleanup(10 * time.Minute)
	return d
}

func (d *Deduplicator) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.prune()
		case <-d.stop:
			return
		}
	}
}

func (d *Deduplicator) prune() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
		}
	}
}

// Close 停止背景清理
func (d *Deduplicator) Close() {
	d.once.Do(func() { close(d.stop) })
}

// seen 記錄指紋；時間窗內已出現過時回傳 true
func (d *Deduplicator) seen(fingerprint string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Handler 請求去重中間件
func (d *Deduplicator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		hash := sha256.New()
		// 不同使用者送出相同內容不算重複
		hash.Write([]byte(c.ClientIP()))
		hash.Write([]byte{0})
		hash.Write([]byte(c.GetHeader("Authorization")))
		hash.Write([]byte{0})

		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				// 超過大小限制等讀取錯誤交給 handler 處理
				common.LogWarn("Failed to read request body", zap.Error(err))
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err}))
				c.Next()
				return
			}
			hash.Write(body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		fingerprint := c.Request.URL.Path + ":" + hex.EncodeToString(hash.Sum(nil))
		if d.seen(fingerprint) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			AbortWithError(c, errDuplicateRequest)
			return
		}

		c.Next()
	}
}

// errReader 讓下游讀到與原本相同的讀取錯誤
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
