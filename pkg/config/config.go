package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata" // 컨테이너 이미지에 zoneinfo 없음

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
// Built once at process start and passed to every component; never mutated.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Price / fundamentals provider
	Provider ProviderConfig

	// Retry policy shared by provider and database calls
	Retry RetryConfig

	// Batch jobs
	Jobs JobsConfig

	// Path to the signal threshold YAML (empty = built-in defaults)
	StrategyConfigPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds the HTTP JSON market-data provider configuration
type ProviderConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// RetryConfig holds exponential backoff parameters
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent int
}

// JobsConfig bounds the per-symbol batch workload
type JobsConfig struct {
	Workers      int
	BatchSize    int
	ItemDelay    time.Duration
	BackfillDays int
	HistoryDays  int // bars requested per symbol on price collection
	Quarters     int // quarters requested per symbol on fundamentals collection

	// 스케줄러
	Timezone   string
	MaxRetries int
	RetryDelay time.Duration
}

// LookupFunc resolves a single configuration key
type LookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	return Parse(os.LookupEnv)
}

// Parse builds a Config from an arbitrary key lookup.
// Tests pass a map-backed lookup instead of mutating the process environment.
func Parse(lookup LookupFunc) (*Config, error) {
	p := &parser{lookup: lookup}

	cfg := &Config{
		// Server
		Port: p.str("PORT", "8089"),
		Env:  p.str("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             p.str("DATABASE_URL", ""),
			MaxConns:        p.integer("DB_MAX_CONNS", 25),
			MinConns:        p.integer("DB_MIN_CONNS", 5),
			MaxConnLifetime: p.duration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: p.duration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		// Redis
		Redis: RedisConfig{
			Host:     p.str("REDIS_HOST", "localhost"),
			Port:     p.str("REDIS_PORT", "6379"),
			Password: p.str("REDIS_PASSWORD", ""),
			DB:       p.integer("REDIS_DB", 0),
			Enabled:  p.boolean("REDIS_ENABLED", false),
		},

		Provider: ProviderConfig{
			APIKey:            p.str("PROVIDER_API_KEY", ""),
			BaseURL:           p.str("PROVIDER_BASE_URL", "https://financialmodelingprep.com/api/v3"),
			RequestsPerSecond: p.float("PROVIDER_RPS", 5),
			Timeout:           p.duration("PROVIDER_TIMEOUT", 30*time.Second),
		},

		Retry: RetryConfig{
			MaxAttempts:   p.integer("RETRY_MAX_ATTEMPTS", 4),
			BaseDelay:     p.duration("RETRY_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:      p.duration("RETRY_MAX_DELAY", 10*time.Second),
			Multiplier:    p.float("RETRY_MULTIPLIER", 2.0),
			JitterPercent: p.integer("RETRY_JITTER_PERCENT", 25),
		},

		Jobs: JobsConfig{
			Workers:      p.integer("JOBS_WORKERS", 4),
			BatchSize:    p.integer("JOBS_BATCH_SIZE", 50),
			ItemDelay:    p.duration("JOBS_ITEM_DELAY", 100*time.Millisecond),
			BackfillDays: p.integer("JOBS_BACKFILL_DAYS", 30),
			HistoryDays:  p.integer("JOBS_HISTORY_DAYS", 400),
			Quarters:     p.integer("JOBS_QUARTERS", 12),
			Timezone:     p.str("JOBS_TIMEZONE", "America/New_York"),
			MaxRetries:   p.integer("JOBS_MAX_RETRIES", 2),
			RetryDelay:   p.duration("JOBS_RETRY_DELAY", time.Minute),
		},

		StrategyConfigPath: p.str("STRATEGY_CONFIG", ""),

		// Logging
		LogLevel:  p.str("LOG_LEVEL", "info"),
		LogFormat: p.str("LOG_FORMAT", "json"),
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("config parse failed: %w", errors.Join(p.errs...))
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Jobs.Workers < 1 || c.Jobs.Workers > 16 {
		return fmt.Errorf("JOBS_WORKERS must be in [1,16]")
	}
	if c.Jobs.BatchSize < 1 {
		return fmt.Errorf("JOBS_BATCH_SIZE must be positive")
	}
	if c.Jobs.BackfillDays < 1 {
		return fmt.Errorf("JOBS_BACKFILL_DAYS must be positive")
	}
	if c.Jobs.MaxRetries < 0 {
		return fmt.Errorf("JOBS_MAX_RETRIES must be >= 0")
	}
	if _, err := time.LoadLocation(c.Jobs.Timezone); err != nil {
		return fmt.Errorf("JOBS_TIMEZONE: %w", err)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("RETRY_MULTIPLIER must be >= 1")
	}
	if c.Retry.JitterPercent < 0 || c.Retry.JitterPercent > 100 {
		return fmt.Errorf("RETRY_JITTER_PERCENT must be in [0,100]")
	}

	if c.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RPS must be positive")
	}

	return nil
}

// RequireProvider fails when the provider credentials are missing.
// Only commands that call the provider need them.
func (c *Config) RequireProvider() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// parser collects every malformed value instead of silently falling back
type parser struct {
	lookup LookupFunc
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	value, ok := p.lookup(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (p *parser) str(key, defaultValue string) string {
	if value, ok := p.raw(key); ok {
		return value
	}
	return defaultValue
}

func (p *parser) integer(key string, defaultValue int) int {
	valueStr, ok := p.raw(key)
	if !ok {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, valueStr))
		return defaultValue
	}

	return value
}

func (p *parser) float(key string, defaultValue float64) float64 {
	valueStr, ok := p.raw(key)
	if !ok {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, valueStr))
		return defaultValue
	}

	return value
}

func (p *parser) boolean(key string, defaultValue bool) bool {
	valueStr, ok := p.raw(key)
	if !ok {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, valueStr))
		return defaultValue
	}

	return value
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	valueStr, ok := p.raw(key)
	if !ok {
		return defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, valueStr))
		return defaultValue
	}

	return duration
}
