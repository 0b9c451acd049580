package parser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Code 解析錯誤分類
type Code string

const (
	CodeNoInternet    Code = "NO_INTERNET"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeAPIFailure    Code = "API_FAILURE"
	CodeParseFailure  Code = "PARSE_FAILURE"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeNotARecipe    Code = "NOT_A_RECIPE"
	CodeDatabaseError Code = "DATABASE_ERROR"
	CodeUnknown       Code = "UNKNOWN"
)

// 對使用者顯示的預設訊息
const (
	msgNoInternet   = "No internet connection. Check your connection and try again."
	msgAPIFailure   = "The recipe service is temporarily unavailable. Please try again."
	msgAPITimeout   = "The recipe service took too long to respond. Please try again."
	msgFetchFailure = "We couldn't load that page. Check the link and try again."
	msgParseFailure = "We couldn't understand the recipe returned by the AI. Please try again."
	msgUnauthorized = "Your session has expired. Please sign in again."
	msgNotARecipe   = "This doesn't look like a recipe. Try pasting the ingredients and steps."
	msgCancelled    = "The request was cancelled."
)

// Error 解析管線對外唯一的錯誤型別
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError 創建解析錯誤
func NewError(code Code, message string, retryable bool, cause error) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable, cause: cause}
}

func errNoInternet(cause error) *Error {
	return NewError(CodeNoInternet, msgNoInternet, true, cause)
}

func errRateLimited(message string) *Error {
	return NewError(CodeRateLimited, message, false, nil)
}

func errAPIFailure(message string, cause error) *Error {
	return NewError(CodeAPIFailure, message, true, cause)
}

// errInvalidInput 輸入檢查失敗，重試無意義
func errInvalidInput(message string) *Error {
	return NewError(CodeParseFailure, message, false, nil)
}

func errParseFailure(message string, cause error) *Error {
	return NewError(CodeParseFailure, message, true, cause)
}

func errUnauthorized(cause error) *Error {
	return NewError(CodeUnauthorized, msgUnauthorized, false, cause)
}

func errNotARecipe(message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = msgNotARecipe
	}
	return NewError(CodeNotARecipe, message, false, nil)
}

func errCancelled(cause error) *Error {
	return NewError(CodeUnknown, msgCancelled, false, cause)
}

var networkHints = []string{
	"network", "fetch", "timeout", "timed out", "api", "connection", "dial", "eof", "no such host", "status",
}

var sessionHints = []string{"missing session", "session expired", "expired session", "no session", "invalid session", "not signed in"}

// Classify 把任意錯誤歸入固定的錯誤分類。
// 判斷順序：限流、非食譜、未授權、取消、網路/逾時/API，其餘一律視為可重試的解析失敗。
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeRateLimited, CodeNotARecipe, CodeUnauthorized:
			if pe.Retryable {
				return NewError(pe.Code, pe.Message, false, pe.cause)
			}
		case CodeAPIFailure:
			if !pe.Retryable {
				return NewError(pe.Code, pe.Message, true, pe.cause)
			}
		}
		return pe
	}

	lower := strings.ToLower(err.Error())

	if containsAny(lower, sessionHints) || strings.Contains(lower, "unauthorized") {
		return errUnauthorized(err)
	}

	if errors.Is(err, context.Canceled) {
		return errCancelled(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errAPIFailure(msgAPITimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errAPIFailure(msgAPITimeout, err)
		}
		return errAPIFailure(msgAPIFailure, err)
	}
	if containsAny(lower, networkHints) {
		return errAPIFailure(msgAPIFailure, err)
	}

	return errParseFailure(msgParseFailure, err)
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
