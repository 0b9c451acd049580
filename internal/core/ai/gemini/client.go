// Package gemini 透過 Google GenAI SDK 呼叫 Gemini 模型。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-parser/internal/core/ai/provider"
	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// Client Gemini 客戶端
type Client struct {
	genAI *genai.Client
	model string
}

// NewClient 創建新的 Gemini 客戶端
func NewClient(ctx context.Context, cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" || strings.Contains(model, "/") {
		// OpenRouter 風格的模型名稱不適用
		model = defaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	genAI, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	common.LogInfo("Gemini 客戶端已初始化",
		zap.String("model", model),
		zap.String("key", common.MaskSecret(cfg.APIKey)),
	)

	return &Client{genAI: genAI, model: model}, nil
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleModel)
	}

	res, err := c.genAI.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, statusError(apiErr)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			return nil, statusError(*apiErrPtr)
		}
		return nil, fmt.Errorf("gemini: generating content: %w", err)
	}

	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return nil, provider.ErrEmptyContent
	}

	resp := &provider.Response{Content: text}
	if res.UsageMetadata != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(res.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

func statusError(apiErr genai.APIError) *provider.StatusError {
	return &provider.StatusError{
		Provider:   providerName,
		StatusCode: apiErr.Code,
		Body:       common.TruncateRunes(apiErr.Message, 512),
	}
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// Name 提供者名稱
func (c *Client) Name() string {
	return providerName
}

// Close genai 客戶端無需釋放資源
func (c *Client) Close() error {
	return nil
}

var _ provider.Provider = (*Client)(nil)
