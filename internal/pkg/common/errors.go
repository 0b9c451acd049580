package common

import (
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構（非解析流程的錯誤，如中間件拒絕）
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Response 轉換為 API 錯誤響應；debug 模式下附帶原始錯誤
func (e *CustomError) Response(debug bool) ErrorResponse {
	resp := ErrorResponse{Code: e.Code, Message: e.Message}
	if debug && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	ErrCodeNotFound           = "NOT_FOUND"           // 404
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"  // 405
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"   // 413
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"   // 429
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	ErrNotFound           = NewError(ErrCodeNotFound, "Resource not found", http.StatusNotFound, nil)
	ErrMethodNotAllowed   = NewError(ErrCodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, nil)
	ErrPayloadTooLarge    = NewError(ErrCodePayloadTooLarge, "Request body too large", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Service temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "Request timeout", http.StatusGatewayTimeout, nil)

	// 頁面快取錯誤
	ErrCacheMiss     = NewError("CACHE_MISS", "快取未命中", http.StatusNotFound, nil)
	ErrCacheFull     = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
)
