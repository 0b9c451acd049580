package parser

import (
	"context"
	"time"

	"recipe-parser/internal/pkg/common"

	"go.uber.org/zap"
)

// Stage 解析管線狀態
type Stage string

const (
	StageIdle                 Stage = "IDLE"
	StageValidatingInput      Stage = "VALIDATING_INPUT"
	StageCheckingConnectivity Stage = "CHECKING_CONNECTIVITY"
	StageResolvingSession     Stage = "RESOLVING_SESSION"
	StageCheckingRateLimit    Stage = "CHECKING_RATE_LIMIT"
	StageFetchingSource       Stage = "FETCHING_SOURCE"
	StageInvokingModel        Stage = "INVOKING_MODEL"
	StageParsingResponse      Stage = "PARSING_RESPONSE"
	StageNormalizing          Stage = "NORMALIZING"
	StageRetrying             Stage = "RETRYING"
	StageSuccess              Stage = "SUCCESS"
	StageFailure              Stage = "FAILURE"
)

// Observer 接收管線邊界事件
type Observer interface {
	StageEntered(ctx context.Context, stage Stage)
	StageExited(ctx context.Context, stage Stage, elapsed time.Duration, err error)
	RetryTriggered(ctx context.Context, attempt int, delay time.Duration, cause *Error)
	Classified(ctx context.Context, stage Stage, err *Error)
}

// NopObserver 忽略所有事件
type NopObserver struct{}

func (NopObserver) StageEntered(context.Context, Stage)                        {}
func (NopObserver) StageExited(context.Context, Stage, time.Duration, error)   {}
func (NopObserver) RetryTriggered(context.Context, int, time.Duration, *Error) {}
func (NopObserver) Classified(context.Context, Stage, *Error)                  {}

// LogObserver 以 zap 輸出結構化事件
type LogObserver struct{}

func (LogObserver) StageEntered(ctx context.Context, stage Stage) {
	common.LogDebug("進入解析階段",
		zap.String("stage", string(stage)),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
	)
}

func (LogObserver) StageExited(ctx context.Context, stage Stage, elapsed time.Duration, err error) {
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
	}
	if err != nil {
		common.LogDebug("解析階段失敗", append(fields, zap.Error(err))...)
		return
	}
	common.LogDebug("離開解析階段", fields...)
}

func (LogObserver) RetryTriggered(ctx context.Context, attempt int, delay time.Duration, cause *Error) {
	common.LogWarn("解析失敗，準備重試",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.String("code", string(cause.Code)),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
		zap.Error(cause),
	)
}

func (LogObserver) Classified(ctx context.Context, stage Stage, err *Error) {
	common.LogInfo("解析錯誤分類",
		zap.String("stage", string(stage)),
		zap.String("code", string(err.Code)),
		zap.Bool("retryable", err.Retryable),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
		zap.Error(err),
	)
}

var (
	_ Observer = NopObserver{}
	_ Observer = LogObserver{}
)
