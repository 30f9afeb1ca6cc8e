package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bracket engine.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Persistence API (server of record)
	Persist PersistConfig

	// Market data feed
	Feed FeedConfig

	// Risk defaults
	Risk RiskConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PersistConfig selects and configures the server-of-record backend.
type PersistConfig struct {
	// Mode is one of: http (remote gateway), postgres, memory.
	Mode    string
	BaseURL string
	APIKey  string

	// Requests per second against the remote gateway.
	RateLimit float64
}

// FeedConfig holds market-data feed configuration.
type FeedConfig struct {
	WSURL        string
	RESTURL      string
	PollInterval time.Duration
	PollRate     float64 // requests per second for the REST poller
	CandleTTL    time.Duration
	Symbols      []string
}

// RiskConfig holds account-level risk defaults.
type RiskConfig struct {
	DefaultBalance float64
	DefaultRiskPct float64
	PresetsPath    string // optional YAML preset file
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Persist: PersistConfig{
			Mode:      getEnv("PERSIST_MODE", "memory"),
			BaseURL:   getEnv("PERSIST_BASE_URL", "http://localhost:8000/api"),
			APIKey:    getEnv("PERSIST_API_KEY", ""),
			RateLimit: getEnvAsFloat("PERSIST_RATE_LIMIT", 10),
		},

		Feed: FeedConfig{
			WSURL:        getEnv("FEED_WS_URL", ""),
			RESTURL:      getEnv("FEED_REST_URL", ""),
			PollInterval: getEnvAsDuration("FEED_POLL_INTERVAL", "5s"),
			PollRate:     getEnvAsFloat("FEED_POLL_RATE", 2),
			CandleTTL:    getEnvAsDuration("FEED_CANDLE_TTL", "2m"),
			Symbols:      splitList(getEnv("FEED_SYMBOLS", "BTC-USDT")),
		},

		Risk: RiskConfig{
			DefaultBalance: getEnvAsFloat("RISK_DEFAULT_BALANCE", 1000),
			DefaultRiskPct: getEnvAsFloat("RISK_DEFAULT_PCT", 0.25),
			PresetsPath:    getEnv("RISK_PRESETS_PATH", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Persist.Mode {
	case "http":
		if c.Persist.BaseURL == "" {
			return fmt.Errorf("PERSIST_BASE_URL is required for http persistence")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres persistence")
		}
	case "memory":
		// No external requirements.
	default:
		return fmt.Errorf("PERSIST_MODE must be one of: http, postgres, memory")
	}

	if c.Risk.DefaultRiskPct <= 0 || c.Risk.DefaultRiskPct > 100 {
		return fmt.Errorf("RISK_DEFAULT_PCT must be in (0, 100]")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
