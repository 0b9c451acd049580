package middleware

import (
	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// anonymousPrefix 未設定 JWT 金鑰時以來源 IP 作為使用者 ID
const anonymousPrefix = "anon:"

// Session 驗證 Bearer 權杖並把 session（或失敗原因）放進 request context。
// 此中間件不會中斷請求，是否拒絕由解析流程依錯誤分類決定。
// verifier 為 nil 時每個來源 IP 視為一位匿名使用者。
func Session(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if verifier == nil {
			ctx = auth.WithSession(ctx, auth.Session{UserID: anonymousPrefix + c.ClientIP()})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			ctx = auth.WithSessionError(ctx, auth.ErrMissingSession)
		} else if session, err := verifier.Verify(token); err != nil {
			common.LogDebug("權杖驗證失敗",
				zap.Error(err),
				zap.String("request_id", common.RequestIDFromContext(ctx)),
			)
			ctx = auth.WithSessionError(ctx, err)
		} else {
			ctx = auth.WithSession(ctx, session)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
