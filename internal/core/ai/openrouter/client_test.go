package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-parser/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(provider.Config{
		APIKey:  "sk-test",
		Model:   "test/model",
		Timeout: 5 * time.Second,
		BaseURL: srv.URL,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	var got Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"message":{"role":"assistant","content":"{\"recipeName\":\"Toast\"}"},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`))
	})

	resp, err := c.Generate(context.Background(), &provider.Request{
		System:      "system prompt",
		User:        "recipe text",
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"recipeName":"Toast"}`, resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "recipe text", got.Messages[1].Content)
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	})

	_, err := c.Generate(context.Background(), &provider.Request{User: "x"})
	require.Error(t, err)

	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "upstream down")
}

func TestGenerateEmptyContent(t *testing.T) {
	tests := map[string]string{
		"no choices":    `{"id":"1","choices":[]}`,
		"blank content": `{"id":"1","choices":[{"message":{"role":"assistant","content":"  "}}]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := c.Generate(context.Background(), &provider.Request{User: "x"})
			assert.ErrorIs(t, err, provider.ErrEmptyContent)
		})
	}
}

func TestGenerateHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, &provider.Request{User: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
