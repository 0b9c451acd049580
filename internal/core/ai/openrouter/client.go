// Package openrouter 透過 OpenRouter chat-completions API 呼叫語言模型。
package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"recipe-parser/internal/core/ai/provider"
	"recipe-parser/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	providerName   = "openrouter"
	maxErrorBody   = 512
)

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
	model  string
}

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示 API 請求
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string         `json:"id"`
	Choices []Choice       `json:"choices"`
	Usage   provider.Usage `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		client.SetHeader("X-Title", cfg.Title)
	}

	common.LogInfo("OpenRouter 客戶端已初始化",
		zap.String("model", cfg.Model),
		zap.String("base_url", baseURL),
		zap.String("key", common.MaskSecret(cfg.APIKey)),
	)

	return &Client{client: client, model: cfg.Model}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := Request{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, Message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, Message{Role: "user", Content: req.User})

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", c.model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("max_tokens", req.MaxTokens),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Body:       common.TruncateRunes(resp.String(), maxErrorBody),
		}
	}

	var result Response
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response: %w", provider.ErrEmptyContent)
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, provider.ErrEmptyContent
	}

	if result.Choices[0].FinishReason == "length" {
		common.LogWarn("OpenRouter 回應因 token 上限被截斷",
			zap.String("model", c.model),
			zap.Int("completion_tokens", result.Usage.CompletionTokens),
		)
	}

	return &provider.Response{Content: content, Usage: result.Usage}, nil
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// Name 提供者名稱
func (c *Client) Name() string {
	return providerName
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

var _ provider.Provider = (*Client)(nil)
