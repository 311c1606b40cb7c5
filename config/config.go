package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Market    MarketConfig    `json:"market"`
	Logging   LoggingConfig   `json:"logging"`
	Backtest  BacktestConfig  `json:"backtest"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig holds HTTP server tuning. Bind address and port are not here:
// they belong to the bootstrap settings.
type ServerConfig struct {
	ReadTimeoutSeconds     int `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
}

// DatabaseConfig represents storage configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// MarketConfig represents the market data provider configuration
type MarketConfig struct {
	ChartURL        string `json:"chart_url"`
	SearchURL       string `json:"search_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	CacheSize       int    `json:"cache_size"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// BacktestConfig represents backtest limits and defaults
type BacktestConfig struct {
	MaxTickers     int     `json:"max_tickers"`
	DefaultCapital float64 `json:"default_capital"`
}

// RateLimitConfig represents the per-client limit on backtest routes
type RateLimitConfig struct {
	PerMinute int `json:"per_minute"`
	Burst     int `json:"burst"`
}

// Load loads configuration from environment variables, then overlays the JSON
// file named by CONFIG_FILE (default config.json) when it exists.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			ReadTimeoutSeconds:     getEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15),
			WriteTimeoutSeconds:    getEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 120),
			ShutdownTimeoutSeconds: getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "data/trader.db"),
		},
		Market: MarketConfig{
			ChartURL:        getEnv("MARKET_DATA_URL", "https://query1.finance.yahoo.com"),
			SearchURL:       getEnv("MARKET_SEARCH_URL", "https://query2.finance.yahoo.com"),
			TimeoutSeconds:  getEnvInt("MARKET_TIMEOUT_SECONDS", 10),
			CacheSize:       getEnvInt("MARKET_CACHE_SIZE", 512),
			CacheTTLSeconds: getEnvInt("MARKET_CACHE_TTL_SECONDS", 900),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Backtest: BacktestConfig{
			MaxTickers:     getEnvInt("BACKTEST_MAX_TICKERS", 60),
			DefaultCapital: getEnvFloat("BACKTEST_DEFAULT_CAPITAL", 50000),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 10),
		},
	}

	path := getEnv("CONFIG_FILE", "config.json")
	if err := overlayFile(cfg, path); err != nil {
		return nil, err
	}

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config file %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// Duration helpers keep second-based fields readable in JSON.

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// HTTPWriteTimeout is the server write timeout, raised when needed so a
// synchronous backtest over MaxTickers slow market fetches can still respond.
func (c *Config) HTTPWriteTimeout() time.Duration {
	timeout := c.Server.WriteTimeout()
	if bound := time.Duration(c.Backtest.MaxTickers)*c.Market.Timeout() + backtestWriteMargin; bound > timeout {
		timeout = bound
	}
	return timeout
}

const backtestWriteMargin = 15 * time.Second

func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m MarketConfig) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLSeconds) * time.Second
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}
