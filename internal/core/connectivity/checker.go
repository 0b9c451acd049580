// Package connectivity 在呼叫模型前確認對外網路可用。
package connectivity

import (
	"context"
	"fmt"
	"time"

	"recipe-parser/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 3 * time.Second

// Checker 以 HEAD 請求探測指定網址；收到任何 HTTP 回應即視為可連線
type Checker struct {
	client *resty.Client
	url    string
}

// NewChecker 創建連線檢查器
func NewChecker(url string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// Check 回傳 nil 表示可連線
func (c *Checker) Check(ctx context.Context) error {
	if c.url == "" {
		return nil
	}

	resp, err := c.client.R().SetContext(ctx).Head(c.url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		common.LogWarn("網路連線檢查失敗",
			zap.String("url", c.url),
			zap.Error(err),
		)
		return fmt.Errorf("network unreachable: %w", err)
	}

	common.LogDebug("網路連線檢查完成",
		zap.String("url", c.url),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}
