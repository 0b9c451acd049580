package middleware

import (
	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// AbortWithError 以錯誤自帶的 HTTP 狀態碼中止請求
func AbortWithError(c *gin.Context, err *common.CustomError) {
	c.AbortWithStatusJSON(err.Status, err.Response(gin.Mode() == gin.DebugMode))
}
