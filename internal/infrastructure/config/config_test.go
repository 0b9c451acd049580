package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 15000, cfg.Parser.MaxSourceChars)
	assert.Equal(t, 2*time.Second, cfg.Parser.RetryBackoff)
	assert.Equal(t, 2, cfg.Parser.MaxAttempts)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.Hourly)
	assert.Equal(t, 15, cfg.RateLimit.Daily)
	assert.True(t, cfg.RateLimit.ChargeFailures)
	assert.Equal(t, time.Second, cfg.DedupWindow)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("RATE_LIMIT_HOURLY", "7")
	t.Setenv("APP_PARSER_MAX_SOURCE_CHARS", "9000")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 7, cfg.RateLimit.Hourly)
	assert.Equal(t, 9000, cfg.Parser.MaxSourceChars)
	assert.Equal(t, "sk-test", cfg.OpenRouter.APIKey)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RATE_LIMIT_BACKEND", "postgres")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit backend")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			LLM:       LLMConfig{Provider: "openrouter", MaxTokens: 1024, Timeout: time.Second},
			Parser:    ParserConfig{MaxSourceChars: 100, MaxAttempts: 2, RetryBackoff: 2 * time.Second},
			RateLimit: RateLimitConfig{Backend: "memory", Hourly: 5, Daily: 15},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing port", func(c *Config) { c.Server.Port = 0 }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "local" }, false},
		{"zero attempts", func(c *Config) { c.Parser.MaxAttempts = 0 }, false},
		{"single attempt", func(c *Config) { c.Parser.MaxAttempts = 1 }, true},
		{"too many attempts", func(c *Config) { c.Parser.MaxAttempts = 3 }, false},
		{"zero retry backoff", func(c *Config) { c.Parser.RetryBackoff = 0 }, false},
		{"zero hourly", func(c *Config) { c.RateLimit.Hourly = 0 }, false},
		{"cache enabled without size", func(c *Config) { c.Cache.Enabled = true }, false},
		{"ip limit enabled without window", func(c *Config) { c.IPRateLimit = IPRateLimitConfig{Enabled: true, Requests: 1} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
