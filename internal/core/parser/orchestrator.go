// Package parser 把食譜文字或網址交給語言模型解析，並把結果整理成結構化工作流程。
//
// 管線依序為：輸入檢查、網路檢查、取得 session、限流檢查、（網址）抓取頁面、
// 呼叫模型、解析回應、正規化。可重試的失敗會在固定延遲後重新呼叫模型一次。
package parser

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/core/workflow"
	"recipe-parser/internal/pkg/common"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultRetryBackoff   = 2 * time.Second
	defaultMaxAttempts    = 2
	defaultMaxSourceChars = 15000
)

// ParserResult 解析結果；Success 為 true 時 Data 必有值，否則 Error 必有值
type ParserResult struct {
	Success bool                   `json:"success" yaml:"success"`
	Data    *workflow.ParsedRecipe `json:"data,omitempty" yaml:"data,omitempty"`
	Error   *Error                 `json:"error,omitempty" yaml:"error,omitempty"`
}

func succeeded(recipe *workflow.ParsedRecipe) ParserResult {
	return ParserResult{Success: true, Data: recipe}
}

func failed(err *Error) ParserResult {
	return ParserResult{Success: false, Error: err}
}

// SessionProvider 提供目前使用者
type SessionProvider interface {
	CurrentSession(ctx context.Context) (auth.Session, error)
}

// ConnectivityChecker 檢查對外網路
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

// RateLimiter 依使用者限制解析次數
type RateLimiter interface {
	CheckLimit(ctx context.Context, userID string) string
	RecordAttempt(ctx context.Context, userID string, success bool)
}

// Fetcher 下載網頁並回傳清理後的文字
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ModelInvoker 呼叫模型並回傳原始文字
type ModelInvoker interface {
	Invoke(ctx context.Context, source string, kind SourceKind) (string, error)
}

// Dependencies 解析器的外部協作者
type Dependencies struct {
	Sessions     SessionProvider
	Connectivity ConnectivityChecker
	Limiter      RateLimiter
	Fetcher      Fetcher
	Invoker      ModelInvoker
	Observer     Observer
}

// Options 解析流程參數；RetryBackoff 未設定時為 2 秒，MaxAttempts 只接受 1 或 2
type Options struct {
	MaxSourceChars int
	RetryBackoff   time.Duration
	MaxAttempts    int
}

// Parser 解析流程協調器；可供多個 goroutine 同時使用
type Parser struct {
	deps Dependencies
	opts Options
}

// NewParser 創建解析器
func NewParser(deps Dependencies, opts Options) *Parser {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if opts.MaxSourceChars <= 0 {
		opts.MaxSourceChars = defaultMaxSourceChars
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	// 每次解析最多呼叫模型兩次
	if opts.MaxAttempts <= 0 || opts.MaxAttempts > defaultMaxAttempts {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Parser{deps: deps, opts: opts}
}

// ParseFromText 解析貼上的食譜文字
func (p *Parser) ParseFromText(ctx context.Context, text string) ParserResult {
	start := p.enter(ctx, StageValidatingInput)
	text = strings.TrimSpace(text)
	if text == "" {
		return p.fail(ctx, StageValidatingInput, errInvalidInput("Please paste a recipe to import."))
	}
	text = common.TruncateRunes(text, p.opts.MaxSourceChars)
	p.exit(ctx, StageValidatingInput, start, nil)

	return p.run(ctx, SourceText, func(context.Context) (string, error) {
		return text, nil
	})
}

// ParseFromURL 抓取網址內容後解析
func (p *Parser) ParseFromURL(ctx context.Context, rawURL string) ParserResult {
	start := p.enter(ctx, StageValidatingInput)
	target, err := validateURL(rawURL)
	if err != nil {
		return p.fail(ctx, StageValidatingInput, err)
	}
	if p.deps.Fetcher == nil {
		return p.fail(ctx, StageValidatingInput, NewError(CodeUnknown, "Importing from a link is not available.", false, nil))
	}
	p.exit(ctx, StageValidatingInput, start, nil)

	return p.run(ctx, SourceURL, func(ctx context.Context) (string, error) {
		start := p.enter(ctx, StageFetchingSource)
		text, err := p.deps.Fetcher.Fetch(ctx, target)
		p.exit(ctx, StageFetchingSource, start, err)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", errAPIFailure(msgFetchFailure, err)
		}
		return common.TruncateRunes(text, p.opts.MaxSourceChars), nil
	})
}

func validateURL(rawURL string) (string, *Error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errInvalidInput("Please enter a recipe link.")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errInvalidInput("Please enter a valid recipe link starting with http:// or https://.")
	}
	return u.String(), nil
}

type sourceFunc func(ctx context.Context) (string, error)

func (p *Parser) run(ctx context.Context, kind SourceKind, source sourceFunc) ParserResult {
	start := p.enter(ctx, StageCheckingConnectivity)
	if p.deps.Connectivity != nil {
		if err := p.deps.Connectivity.Check(ctx); err != nil {
			p.exit(ctx, StageCheckingConnectivity, start, err)
			if ctx.Err() != nil {
				return p.fail(ctx, StageCheckingConnectivity, errCancelled(ctx.Err()))
			}
			return p.fail(ctx, StageCheckingConnectivity, errNoInternet(err))
		}
	}
	p.exit(ctx, StageCheckingConnectivity, start, nil)

	start = p.enter(ctx, StageResolvingSession)
	session, err := p.deps.Sessions.CurrentSession(ctx)
	p.exit(ctx, StageResolvingSession, start, err)
	if err != nil {
		classified := Classify(err)
		if classified.Code != CodeUnauthorized && ctx.Err() == nil {
			classified = errUnauthorized(err)
		}
		return p.fail(ctx, StageResolvingSession, classified)
	}

	start = p.enter(ctx, StageCheckingRateLimit)
	violation := p.deps.Limiter.CheckLimit(ctx, session.UserID)
	p.exit(ctx, StageCheckingRateLimit, start, nil)
	if violation != "" {
		return p.fail(ctx, StageCheckingRateLimit, errRateLimited(violation))
	}

	var (
		attempt     int
		modelCalled bool
		lastStage   Stage
	)
	operation := func() (*workflow.ParsedRecipe, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(errCancelled(err))
		}

		recipe, stage, err := p.attempt(ctx, kind, source, &modelCalled)
		lastStage = stage
		if err != nil {
			classified := Classify(err)
			p.deps.Observer.Classified(ctx, stage, classified)
			if !classified.Retryable {
				return nil, backoff.Permanent(classified)
			}
			return nil, classified
		}
		return recipe, nil
	}

	recipe, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.opts.RetryBackoff)),
		backoff.WithMaxTries(uint(p.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			p.deps.Observer.StageEntered(ctx, StageRetrying)
			p.deps.Observer.RetryTriggered(ctx, attempt, delay, Classify(err))
		}),
	)

	if modelCalled {
		// 呼叫端取消後仍要寫入紀錄
		p.deps.Limiter.RecordAttempt(context.WithoutCancel(ctx), session.UserID, err == nil)
	}

	if err != nil {
		var classified *Error
		if !errors.As(err, &classified) {
			// 等待重試期間被取消或逾時
			return p.fail(ctx, StageRetrying, Classify(err))
		}
		p.deps.Observer.StageEntered(ctx, StageFailure)
		common.LogWarn("食譜解析失敗",
			zap.String("user_id", session.UserID),
			zap.String("stage", string(lastStage)),
			zap.String("code", string(classified.Code)),
			zap.Int("attempts", attempt),
			zap.String("request_id", common.RequestIDFromContext(ctx)),
		)
		return failed(classified)
	}

	p.deps.Observer.StageEntered(ctx, StageSuccess)
	common.LogInfo("食譜解析成功",
		zap.String("user_id", session.UserID),
		zap.String("source", string(kind)),
		zap.String("recipe", recipe.RecipeName),
		zap.Int("steps", len(recipe.Steps)),
		zap.Int("attempts", attempt),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
	)
	return succeeded(recipe)
}

// attempt 執行一次抓取、模型呼叫、解析與正規化
func (p *Parser) attempt(ctx context.Context, kind SourceKind, source sourceFunc, modelCalled *bool) (*workflow.ParsedRecipe, Stage, error) {
	text, err := source(ctx)
	if err != nil {
		return nil, StageFetchingSource, err
	}

	start := p.enter(ctx, StageInvokingModel)
	*modelCalled = true
	raw, err := p.deps.Invoker.Invoke(ctx, text, kind)
	p.exit(ctx, StageInvokingModel, start, err)
	if err != nil {
		return nil, StageInvokingModel, err
	}

	start = p.enter(ctx, StageParsingResponse)
	parsed, err := SanitizeAndParse(raw)
	p.exit(ctx, StageParsingResponse, start, err)
	if err != nil {
		return nil, StageParsingResponse, err
	}

	start = p.enter(ctx, StageNormalizing)
	recipe := workflow.Normalize(parsed)
	p.exit(ctx, StageNormalizing, start, nil)

	return recipe, StageNormalizing, nil
}

func (p *Parser) fail(ctx context.Context, stage Stage, err *Error) ParserResult {
	p.deps.Observer.Classified(ctx, stage, err)
	p.deps.Observer.StageEntered(ctx, StageFailure)
	return failed(err)
}

func (p *Parser) enter(ctx context.Context, stage Stage) time.Time {
	p.deps.Observer.StageEntered(ctx, stage)
	return time.Now()
}

func (p *Parser) exit(ctx context.Context, stage Stage, start time.Time, err error) {
	p.deps.Observer.StageExited(ctx, stage, time.Since(start), err)
}
