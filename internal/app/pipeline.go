// Package app 依設定組裝解析管線，供 API 服務與 CLI 共用。
package app

import (
	"context"
	"errors"
	"fmt"

	"recipe-parser/internal/core/ai/cache"
	"recipe-parser/internal/core/ai/gemini"
	"recipe-parser/internal/core/ai/openrouter"
	"recipe-parser/internal/core/ai/provider"
	"recipe-parser/internal/core/connectivity"
	"recipe-parser/internal/core/fetch"
	"recipe-parser/internal/core/parser"
	"recipe-parser/internal/core/ratelimit"
	"recipe-parser/internal/infrastructure/config"
	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

// Pipeline 組裝完成的解析管線與需要關閉的資源
type Pipeline struct {
	Parser   *parser.Parser
	Provider provider.Provider
	Store    ratelimit.Store
	Cache    *cache.CacheManager
}

// NewProvider 依 llm.provider 建立模型客戶端
func NewProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "openrouter":
		if cfg.OpenRouter.APIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is required for the openrouter provider")
		}
		return openrouter.NewClient(provider.Config{
			APIKey:  cfg.OpenRouter.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
			BaseURL: cfg.OpenRouter.BaseURL,
			Title:   cfg.App.Name,
		}), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, provider.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// Build 建立完整的解析管線；sessions 決定使用者身分來源
func Build(ctx context.Context, cfg *config.Config, sessions parser.SessionProvider) (*Pipeline, error) {
	llm, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	store, err := ratelimit.NewStore(ctx, cfg.RateLimit)
	if err != nil {
		_ = llm.Close()
		return nil, fmt.Errorf("init rate limit store: %w", err)
	}

	pageCache := cache.NewManager(cfg.Cache)

	fetcher := fetch.NewFetcher(fetch.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		MaxChars:     cfg.Parser.MaxSourceChars,
	}, pageCache)

	p := parser.NewParser(parser.Dependencies{
		Sessions:     sessions,
		Connectivity: connectivity.NewChecker(cfg.Parser.ConnectivityURL, cfg.Parser.ConnectivityTimeout),
		Limiter:      ratelimit.NewLimiter(store, ratelimit.LimitsFromConfig(cfg.RateLimit)),
		Fetcher:      fetcher,
		Invoker: parser.NewInvoker(llm, parser.InvokerOptions{
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		}),
		Observer: parser.LogObserver{},
	}, parser.Options{
		MaxSourceChars: cfg.Parser.MaxSourceChars,
		RetryBackoff:   cfg.Parser.RetryBackoff,
		MaxAttempts:    cfg.Parser.MaxAttempts,
	})

	common.LogInfo("解析管線已初始化",
		zap.String("provider", llm.Name()),
		zap.String("model", llm.GetModel()),
		zap.String("prompt_version", parser.PromptVersion),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
		zap.Bool("page_cache", pageCache != nil),
	)

	return &Pipeline{Parser: p, Provider: llm, Store: store, Cache: pageCache}, nil
}

// Close 釋放管線持有的資源
func (p *Pipeline) Close() error {
	return errors.Join(p.Cache.Close(), p.Store.Close(), p.Provider.Close())
}
