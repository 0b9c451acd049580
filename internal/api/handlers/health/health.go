package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	LLM       LLMStatus              `json:"llm"`
	PageCache map[string]interface{} `json:"page_cache"`
}

// LLMStatus 目前使用的模型
type LLMStatus struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Pinger 可檢查連線的依賴（限流儲存）
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStats 提供快取統計
type CacheStats interface {
	GetStats() map[string]interface{}
}

// Options 健康檢查依賴
type Options struct {
	Version  string
	Provider string
	Model    string
	Store    Pinger
	Cache    CacheStats
}

// Handler 健康檢查處理器
type Handler struct {
	opts Options
}

// NewHandler 創建健康檢查處理器
func NewHandler(opts Options) *Handler {
	return &Handler{opts: opts}
}

// Register 註冊 /health、/ready、/live
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := map[string]interface{}{"enabled": false}
	if h.opts.Cache != nil {
		stats = h.opts.Cache.GetStats()
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.opts.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		LLM:       LLMStatus{Provider: h.opts.Provider, Model: h.opts.Model},
		PageCache: stats,
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：限流儲存無法連線時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.opts.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Store.Ping(ctx); err != nil {
			common.LogWarn("限流儲存無法連線", zap.Error(err))
			c.JSON(common.ErrServiceUnavailable.Status, common.ErrServiceUnavailable.Response(false))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
