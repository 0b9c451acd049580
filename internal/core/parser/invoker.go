package parser

import (
	"context"
	"errors"
	"time"

	"recipe-parser/internal/core/ai/provider"
	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	defaultMaxTokens   = 4096
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.2
)

// InvokerOptions 模型呼叫參數
type InvokerOptions struct {
	MaxTokens   int
	Timeout     time.Duration
	Temperature float64
}

// Invoker 組合提示詞並呼叫模型，回傳原始文字
type Invoker struct {
	provider provider.Provider
	opts     InvokerOptions
}

// NewInvoker 創建模型呼叫器
func NewInvoker(p provider.Provider, opts InvokerOptions) *Invoker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	return &Invoker{provider: p, opts: opts}
}

// Invoke 呼叫模型。所有模型端錯誤（非 2xx、空內容、網路、逾時）都回傳可重試的 API_FAILURE；
// 呼叫端取消時回傳 context 錯誤。
func (i *Invoker) Invoke(ctx context.Context, source string, kind SourceKind) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, i.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := i.provider.Generate(callCtx, &provider.Request{
		System:      SystemPrompt(),
		User:        BuildUserContent(source, kind),
		MaxTokens:   i.opts.MaxTokens,
		Temperature: i.opts.Temperature,
	})
	common.LogAICall(i.provider.GetModel(), time.Since(start), err, common.RequestIDFromContext(ctx))

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return "", errAPIFailure(msgAPITimeout, err)
		}
		return "", errAPIFailure(msgAPIFailure, err)
	}
	if resp == nil || resp.Content == "" {
		return "", errAPIFailure(msgAPIFailure, provider.ErrEmptyContent)
	}

	common.LogDebug("模型回應",
		zap.String("provider", i.provider.Name()),
		zap.String("prompt_version", PromptVersion),
		zap.Int("content_length", len(resp.Content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Content, nil
}

// Model 目前使用的模型
func (i *Invoker) Model() string {
	return i.provider.GetModel()
}
