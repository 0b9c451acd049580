package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-parser/internal/api"
	"recipe-parser/internal/api/middleware"
	"recipe-parser/internal/app"
	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/infrastructure/config"
	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("openrouter_key", common.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
	)

	ctx := context.Background()

	pipeline, err := app.Build(ctx, cfg, auth.ContextProvider{})
	if err != nil {
		common.LogFatal("Failed to build parser pipeline", zap.Error(err))
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			common.LogError("Failed to release resources", zap.Error(err))
		}
	}()

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Parser:   pipeline.Parser,
		Verifier: verifier,
		Store:    pipeline.Store,
		Cache:    pipeline.Cache,
		Dedup:    dedup,
		Provider: pipeline.Provider.Name(),
		Model:    pipeline.Provider.GetModel(),
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		return
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
