package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers for the portfolio snapshot store.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

// Config holds all runtime configuration for the paper-trading service.
type Config struct {
	Port     int
	LogLevel string

	StartingCash float64
	Symbols      []string

	FeedBaseURL      string
	FeedInterval     time.Duration
	FeedTimeout      time.Duration
	FeedBackoffBase  time.Duration
	FeedBackoffMax   time.Duration
	FeedRetryCeiling int

	StoreDriver   string
	SQLitePath    string
	RedisAddr     string
	RedisPrefix   string
	FlushInterval time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	startingCash, err := getFloat("STARTING_CASH", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash <= 0 {
		return nil, fmt.Errorf("invalid STARTING_CASH: must be greater than 0")
	}

	symbols := getStrList("SYMBOLS", []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT"})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("invalid SYMBOLS: at least one tracked symbol is required")
	}

	feedBaseURL := getStr("FEED_BASE_URL", "https://api.binance.com/api/v3")

	// The refresh interval stays in the tens of seconds to respect the
	// quote source's rate limits.
	feedInterval, err := getDuration("FEED_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_INTERVAL: %w", err)
	}

	feedTimeout, err := getDuration("FEED_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_TIMEOUT: %w", err)
	}

	feedBackoffBase, err := getDuration("FEED_BACKOFF_BASE", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BACKOFF_BASE: %w", err)
	}

	feedBackoffMax, err := getDuration("FEED_BACKOFF_MAX", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_BACKOFF_MAX: %w", err)
	}

	feedRetryCeiling, err := getInt("FEED_RETRY_CEILING", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_RETRY_CEILING: %w", err)
	}
	if feedRetryCeiling < 1 {
		return nil, fmt.Errorf("invalid FEED_RETRY_CEILING: must be at least 1")
	}

	storeDriver := getStr("STORE_DRIVER", StoreDriverSQLite)
	if storeDriver != StoreDriverSQLite && storeDriver != StoreDriverRedis {
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: sqlite, redis", storeDriver)
	}

	sqlitePath := getStr("SQLITE_PATH", "papertrade.db")
	redisAddr := getStr("REDIS_ADDR", "localhost:6379")
	redisPrefix := getStr("REDIS_PREFIX", "papertrade")

	flushInterval, err := getDuration("FLUSH_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FLUSH_INTERVAL: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		StartingCash:     startingCash,
		Symbols:          symbols,
		FeedBaseURL:      feedBaseURL,
		FeedInterval:     feedInterval,
		FeedTimeout:      feedTimeout,
		FeedBackoffBase:  feedBackoffBase,
		FeedBackoffMax:   feedBackoffMax,
		FeedRetryCeiling: feedRetryCeiling,
		StoreDriver:      storeDriver,
		SQLitePath:       sqlitePath,
		RedisAddr:        redisAddr,
		RedisPrefix:      redisPrefix,
		FlushInterval:    flushInterval,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getStrList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
