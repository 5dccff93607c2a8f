package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string

	SettingsFile     string
	Timezone         string
	DefaultRateLimit string
	MaxTasks         int
	RequestTimeout   time.Duration

	JobMaxRetries           int
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RedisURL:         getEnv("REDIS_URL", ""),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SettingsFile:     getEnv("SETTINGS_FILE", ""),
		Timezone:         getEnv("TIMEZONE", ""),
		DefaultRateLimit: getEnv("DEFAULT_RATE_LIMIT", "30-M"),
		MaxTasks:         getEnvInt("MAX_TASKS", 500),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		JobMaxRetries:           getEnvInt("JOB_MAX_RETRIES", 3),
		BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerTimeout:          getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),
	}

	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return nil, fmt.Errorf("SERVER_PORT must be numeric, got %q", cfg.ServerPort)
	}
	if cfg.MaxTasks <= 0 {
		return nil, fmt.Errorf("MAX_TASKS must be positive, got %d", cfg.MaxTasks)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.RabbitMQPrefetch <= 0 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be positive, got %d", cfg.RabbitMQPrefetch)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
		}
	}

	return cfg, nil
}

// RequireRabbitMQ fails when no broker is configured. The worker cannot run without one.
func (c *Config) RequireRabbitMQ() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the analysis worker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
