package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTEL     OTELConfig
	Matching MatchingConfig
	Cache    CacheConfig
	Stream   StreamConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string

	// BookingsPerMinute caps booking creation per client address, 0 disables it
	BookingsPerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	ConnectAttempts int

	BreakerFailures       int
	BreakerTimeoutSeconds int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// MatchingConfig tunes search, recommendation and alternative lookups
type MatchingConfig struct {
	QualityThreshold       float64
	DefaultSearchLimit     int
	DefaultRecommendLimit  int
	AlternativesLimit      int
	HistorySize            int
	RecencyWindowDays      int
	RecommendationCacheTTL int // seconds
}

// CacheConfig controls provider cache warming
type CacheConfig struct {
	WarmIntervalSeconds int
	WarmLimit           int
}

// StreamConfig configures the event stream server
type StreamConfig struct {
	Port             int
	HeartbeatSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),

			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

			BookingsPerMinute: getEnvAsInt("RATE_LIMIT_BOOKINGS_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "sewa"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),

			ConnectAttempts: getEnvAsInt("REDIS_CONNECT_ATTEMPTS", 5),

			BreakerFailures:       getEnvAsInt("REDIS_BREAKER_FAILURES", 5),
			BreakerTimeoutSeconds: getEnvAsInt("REDIS_BREAKER_TIMEOUT_SECONDS", 30),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sewa-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Matching: MatchingConfig{
			QualityThreshold:       getEnvAsFloat("MATCH_QUALITY_THRESHOLD", 0.55),
			DefaultSearchLimit:     getEnvAsInt("MATCH_SEARCH_LIMIT", 20),
			DefaultRecommendLimit:  getEnvAsInt("MATCH_RECOMMEND_LIMIT", 10),
			AlternativesLimit:      getEnvAsInt("MATCH_ALTERNATIVES_LIMIT", 5),
			HistorySize:            getEnvAsInt("MATCH_HISTORY_SIZE", 20),
			RecencyWindowDays:      getEnvAsInt("MATCH_RECENCY_WINDOW_DAYS", 90),
			RecommendationCacheTTL: getEnvAsInt("MATCH_RECOMMEND_CACHE_TTL", 120),
		},
		Stream: StreamConfig{
			Port:             getEnvAsInt("STREAM_PORT", 8081),
			HeartbeatSeconds: getEnvAsInt("STREAM_HEARTBEAT_SECONDS", 30),
		},
		Cache: CacheConfig{
			WarmIntervalSeconds: getEnvAsInt("CACHE_WARM_INTERVAL_SECONDS", 600),
			WarmLimit:           getEnvAsInt("CACHE_WARM_LIMIT", 200),
		},
	}

	if err := cfg.Matching.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m MatchingConfig) validate() error {
	if m.QualityThreshold < 0 || m.QualityThreshold > 1 {
		return fmt.Errorf("MATCH_QUALITY_THRESHOLD must be within [0,1], got %v", m.QualityThreshold)
	}
	if m.RecencyWindowDays <= 0 {
		return fmt.Errorf("MATCH_RECENCY_WINDOW_DAYS must be positive, got %d", m.RecencyWindowDays)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
