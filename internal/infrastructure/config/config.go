package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Parser      ParserConfig      `mapstructure:"parser"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	IPRateLimit IPRateLimitConfig `mapstructure:"ip_rate_limit"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	DedupWindow time.Duration     `mapstructure:"dedup_window"`
	LogLevel    string            `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// LLMConfig 語言模型共用設定
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"` // openrouter | gemini
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ParserConfig 解析流程設定
type ParserConfig struct {
	MaxSourceChars      int           `mapstructure:"max_source_chars"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	ConnectivityURL     string        `mapstructure:"connectivity_url"`
	ConnectivityTimeout time.Duration `mapstructure:"connectivity_timeout"`
}

// RateLimitConfig 每位使用者的解析額度
type RateLimitConfig struct {
	Backend        string `mapstructure:"backend"` // memory | redis | sqlite
	Hourly         int    `mapstructure:"hourly"`
	Daily          int    `mapstructure:"daily"`
	ChargeFailures bool   `mapstructure:"charge_failures"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	SQLitePath     string `mapstructure:"sqlite_path"`
}

// IPRateLimitConfig 依 IP 的粗略限流（中間件）
type IPRateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// FetchConfig 食譜網頁抓取設定
type FetchConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

// CacheConfig 網頁內容快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AuthConfig 存取權杖驗證設定
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"llm.provider":          "LLM_PROVIDER",
		"llm.model":             "LLM_MODEL",
		"llm.max_tokens":        "MODEL_MAX_TOKENS",
		"openrouter.api_key":    "OPENROUTER_API_KEY",
		"gemini.api_key":        "GEMINI_API_KEY",
		"rate_limit.backend":    "RATE_LIMIT_BACKEND",
		"rate_limit.hourly":     "RATE_LIMIT_HOURLY",
		"rate_limit.daily":      "RATE_LIMIT_DAILY",
		"rate_limit.redis_addr": "REDIS_ADDR",
		"auth.jwt_secret":       "JWT_SECRET",
		"dedup_window":          "DEDUP_WINDOW",
		"log_level":             "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-parser")
	v.SetDefault("log_level", "info")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 模型設定
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.model", "anthropic/claude-3.5-haiku")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("gemini.api_key", "")

	// 解析流程設定
	v.SetDefault("parser.max_source_chars", 15000)
	v.SetDefault("parser.retry_backoff", "2s")
	v.SetDefault("parser.max_attempts", 2)
	v.SetDefault("parser.connectivity_url", "https://openrouter.ai")
	v.SetDefault("parser.connectivity_timeout", "3s")

	// 限流設定
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.hourly", 5)
	v.SetDefault("rate_limit.daily", 15)
	v.SetDefault("rate_limit.charge_failures", true)
	v.SetDefault("rate_limit.redis_addr", "localhost:6379")
	v.SetDefault("rate_limit.redis_password", "")
	v.SetDefault("rate_limit.redis_db", 0)
	v.SetDefault("rate_limit.sqlite_path", "data/ratelimit.db")

	v.SetDefault("ip_rate_limit.enabled", true)
	v.SetDefault("ip_rate_limit.requests", 60)
	v.SetDefault("ip_rate_limit.window", "1m")

	// 網頁抓取設定
	v.SetDefault("fetch.user_agent", "RecipeParserBot/1.0 (+https://github.com/recipe-parser; recipe import)")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.max_body_bytes", 5<<20)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 存取權杖設定
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "recipe-parser")

	v.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.LLM.Provider {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", config.LLM.Provider)
	}
	if config.LLM.MaxTokens <= 0 {
		return fmt.Errorf("invalid llm max tokens")
	}
	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("invalid llm timeout")
	}

	if config.Parser.MaxSourceChars <= 0 {
		return fmt.Errorf("invalid parser max source chars")
	}
	if config.Parser.MaxAttempts < 1 || config.Parser.MaxAttempts > 2 {
		return fmt.Errorf("parser max attempts must be 1 or 2")
	}
	if config.Parser.RetryBackoff <= 0 {
		return fmt.Errorf("invalid parser retry backoff")
	}

	switch config.RateLimit.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown rate limit backend %q", config.RateLimit.Backend)
	}
	if config.RateLimit.Hourly <= 0 || config.RateLimit.Daily <= 0 {
		return fmt.Errorf("rate limit thresholds must be positive")
	}

	if config.IPRateLimit.Enabled && (config.IPRateLimit.Requests <= 0 || config.IPRateLimit.Window <= 0) {
		return fmt.Errorf("invalid ip rate limit")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
