package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-parser/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeStats map[string]interface{}

func (s fakeStats) GetStats() map[string]interface{} { return s }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(Options{
		Version:  "1.2.3",
		Provider: "openrouter",
		Model:    "anthropic/claude-3.5-haiku",
		Cache:    fakeStats{"enabled": true, "size": 2},
	})

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var res HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "1.2.3", res.Version)
	assert.Equal(t, "openrouter", res.LLM.Provider)
	assert.Equal(t, true, res.PageCache["enabled"])
}

func TestReadiness(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(NewHandler(Options{Store: fakePinger{}}), "/ready").Code)
	w := serve(NewHandler(Options{Store: fakePinger{err: errors.New("down")}}), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeServiceUnavailable)
}

func TestLiveness(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(NewHandler(Options{}), "/live").Code)
}
