package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.POST("/echo", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, string(body))
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func post(r http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInternalError)
}

func TestLoggerPropagatesRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(requestid.New(), Logger())
	r.GET("/id", func(c *gin.Context) {
		seen = common.RequestIDFromContext(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-123", seen)
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))

	assert.Equal(t, http.StatusOK, post(r, "short").Code)

	w := post(r, "this body is too long")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodePayloadTooLarge)
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	defer d.Close()
	r := newEngine(d.Handler())

	first := post(r, `{"text":"toast"}`)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, `{"text":"toast"}`, first.Body.String())

	assert.Equal(t, http.StatusTooManyRequests, post(r, `{"text":"toast"}`).Code)

	// 內容或使用者不同都不算重複
	assert.Equal(t, http.StatusOK, post(r, `{"text":"bread"}`).Code)
	assert.Equal(t, http.StatusOK, post(r, `{"text":"toast"}`, "Authorization", "Bearer other").Code)
}

func TestDeduplicationWindowExpires(t *testing.T) {
	now := time.Now()
	d := NewDeduplicator(time.Second)
	defer d.Close()
	d.now = func() time.Time { return now }
	r := newEngine(d.Handler())

	require.Equal(t, http.StatusOK, post(r, "same").Code)
	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, post(r, "same").Code)

	d.prune()
	assert.Len(t, d.requests, 1)
}

func TestRateLimiterPerIP(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	// 每 30 秒補一個令牌
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		rl.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Len(t, rl.buckets, 100)

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.Len(t, rl.buckets, 100, "no sweep before a full window")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.200"))
	assert.Len(t, rl.buckets, 1)
	assert.Contains(t, rl.buckets, "10.0.0.200")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(1, time.Minute))

	assert.Equal(t, http.StatusOK, post(r, "a").Code)
	w := post(r, "b")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), common.ErrCodeTooManyRequests)
}

func sessionEngine(verifier *auth.Verifier) (*gin.Engine, *auth.Session, *error) {
	var (
		session auth.Session
		err     error
	)
	r := gin.New()
	r.Use(Session(verifier))
	r.GET("/me", func(c *gin.Context) {
		session, err = auth.FromContext(c.Request.Context())
	})
	return r, &session, &err
}

func TestSessionValidToken(t *testing.T) {
	v := auth.NewVerifier("secret", "recipe-parser")
	token, err := v.Issue("baker-1", time.Hour)
	require.NoError(t, err)

	r, session, sessErr := sessionEngine(v)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, *sessErr)
	assert.Equal(t, "baker-1", session.UserID)
}

func TestSessionMissingOrInvalid(t *testing.T) {
	v := auth.NewVerifier("secret", "")
	r, _, sessErr := sessionEngine(v)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.ErrorIs(t, *sessErr, auth.ErrMissingSession)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.ErrorIs(t, *sessErr, auth.ErrInvalidSession)
}

func TestSessionAnonymous(t *testing.T) {
	r, session, sessErr := sessionEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, *sessErr)
	assert.Equal(t, "anon:10.0.0.7", session.UserID)
}
