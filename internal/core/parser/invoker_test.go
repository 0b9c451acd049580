package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-parser/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	resp  *provider.Response
	err   error
	delay time.Duration
	got   *provider.Request
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeProvider) GetModel() string { return "fake-model" }
func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Close() error     { return nil }

func TestInvokerBuildsRequest(t *testing.T) {
	p := &fakeProvider{resp: &provider.Response{Content: "{}"}}
	inv := NewInvoker(p, InvokerOptions{MaxTokens: 1024})

	out, err := inv.Invoke(context.Background(), "  2 eggs, fry them  ", SourceText)
	require.NoError(t, err)
	assert.Equal(t, "{}", out)

	require.NotNil(t, p.got)
	assert.Equal(t, SystemPrompt(), p.got.System)
	assert.Contains(t, p.got.System, "not_a_recipe")
	assert.Contains(t, p.got.System, "Prepare Ingredients")
	assert.Contains(t, p.got.User, "<recipe>\n2 eggs, fry them\n</recipe>")
	assert.Equal(t, 1024, p.got.MaxTokens)
	assert.Equal(t, defaultTemperature, p.got.Temperature)
	assert.Equal(t, "fake-model", inv.Model())
}

func TestInvokerFailuresAreRetryableAPIFailures(t *testing.T) {
	tests := []struct {
		name    string
		p       *fakeProvider
		message string
	}{
		{"status error", &fakeProvider{err: &provider.StatusError{Provider: "fake", StatusCode: 500}}, msgAPIFailure},
		{"empty content", &fakeProvider{err: provider.ErrEmptyContent}, msgAPIFailure},
		{"nil response", &fakeProvider{}, msgAPIFailure},
		{"timeout", &fakeProvider{delay: time.Second, resp: &provider.Response{Content: "{}"}}, msgAPITimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvoker(tt.p, InvokerOptions{Timeout: 20 * time.Millisecond})
			_, err := inv.Invoke(context.Background(), "recipe", SourceURL)

			var pe *Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, CodeAPIFailure, pe.Code)
			assert.True(t, pe.Retryable)
			assert.Equal(t, tt.message, pe.Message)
		})
	}
}

func TestInvokerPropagatesCallerCancellation(t *testing.T) {
	inv := NewInvoker(&fakeProvider{delay: time.Second}, InvokerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, "recipe", SourceText)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CodeUnknown, Classify(err).Code)
}
