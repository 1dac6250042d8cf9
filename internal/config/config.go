package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Data      DataConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Quota     QuotaConfig
	Cache     CacheConfig
	Audit     AuditConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DataConfig locates the on-disk stores (cache, quotas, semantic index,
// audit log). The directory is created at startup if missing.
type DataConfig struct {
	Dir string
}

// OpenAIConfig holds credentials and defaults for the OpenAI backend.
// An empty APIKey disables the provider; requests that miss both the cache
// and the semantic index then fail with a provider-unavailable error.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// AnthropicConfig holds credentials for the optional Anthropic backend.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// ProviderName selects the generation backend.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
)

// QuotaConfig carries the default per-user token budgets applied when a
// quota record is created lazily.
type QuotaConfig struct {
	DailyLimit   int
	MonthlyLimit int
}

// CacheConfig selects the exact-match cache backend. The file backend is the
// default; the redis backend is for deployments sharing a cache across
// instances.
type CacheConfig struct {
	Backend   string // "file" or "redis"
	RedisAddr string
	RedisDB   int

	// Entries older than MaxAgeDays are purged by the background janitor
	// every CleanupInterval. A zero interval disables the janitor.
	MaxAgeDays      int
	CleanupInterval time.Duration
}

// AuditConfig selects the audit sink. With DatabaseURL empty the JSONL file
// store under the data directory is used.
type AuditConfig struct {
	DatabaseURL string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultDataDir = "./data"

	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 2000
	defaultOpenAITimeout  = 120 * time.Second

	defaultAnthropicModel = "claude-3-haiku-20240307"

	defaultDailyLimit   = 10000
	defaultMonthlyLimit = 300000

	defaultCacheBackend    = "file"
	defaultCacheMaxAgeDays = 30
)

// Provider returns which backend should serve completions.
func (c Config) Provider() ProviderName {
	if v := os.Getenv("GENERATION_PROVIDER"); v == string(ProviderAnthropic) {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Data: DataConfig{
			Dir: getEnv("DATA_DIR", defaultDataDir),
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			Model:          getEnv("OPENAI_MODEL", defaultOpenAIModel),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", defaultEmbeddingModel),
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			Timeout:        defaultOpenAITimeout,
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnv("ANTHROPIC_MODEL", defaultAnthropicModel),
		},
		Quota: QuotaConfig{
			DailyLimit:   defaultDailyLimit,
			MonthlyLimit: defaultMonthlyLimit,
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", defaultCacheBackend),
			RedisAddr:  os.Getenv("REDIS_ADDR"),
			MaxAgeDays: defaultCacheMaxAgeDays,
		},
		Audit: AuditConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil || temp < 0 || temp > 2 {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: must be a number between 0 and 2")
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_MAX_TOKENS: %w", err)
		}
		cfg.OpenAI.MaxTokens = n
	}

	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TIMEOUT_SECONDS: %w", err)
		}
		cfg.OpenAI.Timeout = d
	}

	if v := os.Getenv("QUOTA_DAILY_LIMIT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUOTA_DAILY_LIMIT: %w", err)
		}
		cfg.Quota.DailyLimit = n
	}

	if v := os.Getenv("QUOTA_MONTHLY_LIMIT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUOTA_MONTHLY_LIMIT: %w", err)
		}
		cfg.Quota.MonthlyLimit = n
	}

	switch cfg.Cache.Backend {
	case "file":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return Config{}, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND: must be 'file' or 'redis'")
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid REDIS_DB: must be a non-negative integer")
		}
		cfg.Cache.RedisDB = n
	}

	if v := os.Getenv("CACHE_MAX_AGE_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_MAX_AGE_DAYS: %w", err)
		}
		cfg.Cache.MaxAgeDays = n
	}

	if v := os.Getenv("CACHE_CLEANUP_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_CLEANUP_INTERVAL_SECONDS: %w", err)
		}
		cfg.Cache.CleanupInterval = d
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
