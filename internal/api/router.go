package api

import (
	"context"
	"errors"
	"time"

	"recipe-parser/internal/api/handlers/health"
	"recipe-parser/internal/api/handlers/parse"
	"recipe-parser/internal/api/middleware"
	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/infrastructure/config"
	"recipe-parser/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Parser   parse.Parser
	Verifier *auth.Verifier // nil 時以來源 IP 作為匿名使用者
	Store    health.Pinger
	Cache    health.CacheStats
	Dedup    *middleware.Deduplicator
	Provider string
	Model    string
}

// requestTimeout 整個請求的上限：兩次模型呼叫、重試等待與抓取網頁
func requestTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.Parser.MaxAttempts)
	return attempts*(cfg.LLM.Timeout+cfg.Fetch.Timeout) + cfg.Parser.RetryBackoff + cfg.Parser.ConnectivityTimeout
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Parser == nil {
		return nil, errors.New("parser is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	health.NewHandler(health.Options{
		Version:  cfg.App.Version,
		Provider: deps.Provider,
		Model:    deps.Model,
		Store:    deps.Store,
		Cache:    deps.Cache,
	}).Register(router)

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, common.ErrNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, common.ErrMethodNotAllowed)
	})

	timeout := requestTimeout(cfg)

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.IPRateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.IPRateLimit.Requests, cfg.IPRateLimit.Window))
	}
	if deps.Dedup != nil {
		api.Use(deps.Dedup.Handler())
	}
	api.Use(middleware.Session(deps.Verifier))
	api.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", common.RequestIDFromContext(ctx)),
				zap.Duration("timeout", timeout),
			)
			middleware.AbortWithError(c, common.ErrGatewayTimeout)
		}
	})

	retryAfter := int(time.Hour.Seconds())
	parse.NewHandler(deps.Parser, retryAfter).Register(api.Group("/workflows"))

	if deps.Verifier == nil {
		common.LogWarn("未設定 JWT 金鑰，解析額度將以來源 IP 計算")
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("provider", deps.Provider),
		zap.String("model", deps.Model),
		zap.Duration("request_timeout", timeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("ip_rate_limit", cfg.IPRateLimit.Enabled),
	)

	return router, nil
}
