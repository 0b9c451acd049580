// Package fetch 下載食譜網頁並轉成適合送給模型的純文字。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-parser/internal/core/ai/cache"
	"recipe-parser/internal/pkg/common"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultUserAgent = "RecipeParserBot/1.0"
	defaultTimeout   = 15 * time.Second
	defaultMaxChars  = 15000

	removedSelectors = "script, style, nav, header, footer, noscript, svg, iframe"
)

// ErrNoContent 頁面沒有可讀文字
var ErrNoContent = errors.New("fetched page has no readable text")

// Options 抓取設定
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
	// MaxChars 回傳文字的字元上限
	MaxChars int
}

// Fetcher 以 colly 抓取頁面；同一網址的併發請求只會抓取一次
type Fetcher struct {
	opts  Options
	cache *cache.CacheManager
	group singleflight.Group
}

// NewFetcher 創建抓取器；pageCache 可為 nil
func NewFetcher(opts Options, pageCache *cache.CacheManager) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	return &Fetcher{opts: opts, cache: pageCache}
}

// Fetch 回傳清理後的頁面文字
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if text, err := f.cache.Get(url); err == nil {
		return text, nil
	}

	ch := f.group.DoChan(url, func() (interface{}, error) {
		text, err := f.scrape(ctx, url)
		if err != nil {
			return "", err
		}
		if err := f.cache.Set(url, text); err != nil {
			common.LogWarn("網頁快取寫入失敗", zap.String("url", url), zap.Error(err))
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			common.LogDebug("共用進行中的網頁抓取", zap.String("url", url))
		}
		return res.Val.(string), nil
	}
}

func (f *Fetcher) scrape(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.opts.Timeout)
	if f.opts.MaxBodyBytes > 0 {
		c.MaxBodySize = f.opts.MaxBodyBytes
	}

	var structured, text string

	// 必須在移除 script 之前讀取 JSON-LD
	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		if structured != "" {
			return
		}
		structured = structuredRecipe(e.Text)
	})

	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find(removedSelectors).Remove()
		text = common.CollapseWhitespace(e.DOM.Text())
	})

	start := time.Now()
	if err := c.Visit(url); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		common.LogWarn("網頁抓取失敗",
			zap.String("url", url),
			zap.Duration("耗時", time.Since(start)),
			zap.Error(err),
		)
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	if text == "" && structured == "" {
		return "", fmt.Errorf("fetch %s: %w", url, ErrNoContent)
	}

	var b strings.Builder
	if structured != "" {
		b.WriteString("Structured recipe data:\n")
		b.WriteString(structured)
		b.WriteString("\n\nPage text:\n")
	}
	b.WriteString(text)

	result := common.TruncateRunes(b.String(), f.opts.MaxChars)
	common.LogInfo("網頁抓取完成",
		zap.String("url", url),
		zap.Bool("structured", structured != ""),
		zap.Int("chars", len([]rune(result))),
		zap.Duration("耗時", time.Since(start)),
	)
	return result, nil
}
