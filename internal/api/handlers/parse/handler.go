// Package parse 提供食譜文字與網址匯入的 HTTP 端點。
package parse

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"recipe-parser/internal/api/middleware"
	"recipe-parser/internal/core/parser"
	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Parser 解析流程
type Parser interface {
	ParseFromText(ctx context.Context, text string) parser.ParserResult
	ParseFromURL(ctx context.Context, rawURL string) parser.ParserResult
}

// TextRequest 貼上文字匯入
type TextRequest struct {
	Text string `json:"text"`
}

// URLRequest 網址匯入
type URLRequest struct {
	URL string `json:"url"`
}

// Handler 解析端點處理器
type Handler struct {
	parser     Parser
	retryAfter int
}

// NewHandler 創建處理器；retryAfter 為限流時回傳的 Retry-After 秒數
func NewHandler(p Parser, retryAfter int) *Handler {
	if retryAfter <= 0 {
		retryAfter = 3600
	}
	return &Handler{parser: p, retryAfter: retryAfter}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/parse-text", h.ParseText)
	group.POST("/parse-url", h.ParseURL)
}

// ParseText POST /workflows/parse-text
func (h *Handler) ParseText(c *gin.Context) {
	var req TextRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, h.parser.ParseFromText(c.Request.Context(), req.Text))
}

// ParseURL POST /workflows/parse-url
func (h *Handler) ParseURL(c *gin.Context) {
	var req URLRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, h.parser.ParseFromURL(c.Request.Context(), req.URL))
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.AbortWithError(c, common.ErrPayloadTooLarge)
		return false
	}

	common.LogWarn("無效的解析請求",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", common.RequestIDFromContext(c.Request.Context())),
	)
	c.AbortWithStatusJSON(http.StatusBadRequest, parser.ParserResult{
		Error: parser.NewError(parser.CodeParseFailure, "The request body must be a JSON object.", false, err),
	})
	return false
}

func (h *Handler) respond(c *gin.Context, result parser.ParserResult) {
	status := StatusFor(result)
	if status == http.StatusTooManyRequests {
		c.Header("Retry-After", strconv.Itoa(h.retryAfter))
	}
	c.JSON(status, result)
}

// StatusFor 依錯誤分類決定 HTTP 狀態碼
func StatusFor(result parser.ParserResult) int {
	if result.Success {
		return http.StatusOK
	}
	if result.Error == nil {
		return http.StatusInternalServerError
	}
	switch result.Error.Code {
	case parser.CodeNoInternet:
		return http.StatusServiceUnavailable
	case parser.CodeRateLimited:
		return http.StatusTooManyRequests
	case parser.CodeAPIFailure:
		return http.StatusBadGateway
	case parser.CodeParseFailure, parser.CodeNotARecipe:
		return http.StatusUnprocessableEntity
	case parser.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
