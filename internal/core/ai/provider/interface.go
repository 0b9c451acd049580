// Package provider 定義語言模型提供者的共用介面。
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request 表示發送到模型提供者的請求
type Request struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從模型提供者收到的響應
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Provider 定義模型提供者介面
type Provider interface {
	// Generate 生成模型響應；非 2xx、傳輸錯誤與空內容都回傳錯誤
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// Name 提供者名稱
	Name() string

	// Close 關閉提供者連接
	Close() error
}

// Config 定義模型提供者配置
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string
	Referer string
	Title   string
}

// ErrEmptyContent 模型回傳空內容
var ErrEmptyContent = errors.New("model returned empty content")

// StatusError 模型端點回傳非成功狀態
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
