package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"brands-console/internal/logging"
)

// Config holds all configuration for the console
type Config struct {
	Port                string
	LogLevel            string
	Environment         string
	APIBaseURL          string
	APIKey              string
	RequestTimeout      string
	DebounceQuietPeriod string
	NotificationTTL     string
	MaxNotifications    string
	ConsoleAPIKeys      string
	MetricsExporter     string
}

// Defaults used when a variable is missing or cannot be parsed
const (
	DefaultRequestTimeout      = 30 * time.Second
	DefaultDebounceQuietPeriod = 500 * time.Millisecond
	DefaultNotificationTTL     = 5 * time.Second
	DefaultMaxNotifications    = 100
)

// LoadConfig loads configuration from .env file and environment variables.
// Existing environment variables are never overridden by the .env file.
func LoadConfig() *Config {
	if LoadDotEnv() {
		slog.Info("Successfully loaded .env file")
	}

	config := FromEnv()

	logging.SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"apiBaseURL", config.APIBaseURL,
		"apiKeyConfigured", config.APIKey != "",
		"requestTimeout", config.RequestTimeout,
		"debounceQuietPeriod", config.DebounceQuietPeriod,
		"notificationTTL", config.NotificationTTL,
		"maxNotifications", config.MaxNotifications,
		"metricsExporter", config.MetricsExporter)

	return config
}

// LoadDotEnv merges a .env file from the working directory into the environment
// and reports whether one was found.
func LoadDotEnv() bool {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, continuing with system environment variables only", "error", err)
		return false
	}
	return true
}

// FromEnv reads the configuration from the process environment without touching .env or logging setup
func FromEnv() *Config {
	return &Config{
		Port:                getEnvWithDefault("PORT", "8090"),
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:         getEnvWithDefault("ENVIRONMENT", "development"),
		APIBaseURL:          getEnvWithDefault("BRANDS_API_BASE_URL", "http://localhost:8000/api"),
		APIKey:              getEnvWithDefault("BRANDS_API_KEY", ""),
		RequestTimeout:      getEnvWithDefault("REQUEST_TIMEOUT", "30s"),
		DebounceQuietPeriod: getEnvWithDefault("DEBOUNCE_QUIET_PERIOD", "500ms"),
		NotificationTTL:     getEnvWithDefault("NOTIFICATION_TTL", "5s"),
		MaxNotifications:    getEnvWithDefault("MAX_NOTIFICATIONS", "100"),
		ConsoleAPIKeys:      getEnvWithDefault("CONSOLE_API_KEYS", "demo"),
		MetricsExporter:     getEnvWithDefault("METRICS_EXPORTER", ""),
	}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RequestTimeoutDuration parses REQUEST_TIMEOUT
func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDuration("request timeout", c.RequestTimeout, DefaultRequestTimeout)
}

// DebounceQuietPeriodDuration parses DEBOUNCE_QUIET_PERIOD
func (c *Config) DebounceQuietPeriodDuration() time.Duration {
	return parseDuration("debounce quiet period", c.DebounceQuietPeriod, DefaultDebounceQuietPeriod)
}

// NotificationTTLDuration parses NOTIFICATION_TTL
func (c *Config) NotificationTTLDuration() time.Duration {
	return parseDuration("notification ttl", c.NotificationTTL, DefaultNotificationTTL)
}

// MaxNotificationsCount parses MAX_NOTIFICATIONS
func (c *Config) MaxNotificationsCount() int {
	count, err := strconv.Atoi(c.MaxNotifications)
	if err != nil || count < 1 {
		slog.Warn("Invalid max notifications, using default", "provided", c.MaxNotifications, "error", err)
		return DefaultMaxNotifications
	}
	return count
}

// ConsoleKeys returns the accepted console API keys
func (c *Config) ConsoleKeys() []string {
	keys := make([]string, 0)
	for _, key := range strings.Split(c.ConsoleAPIKeys, ",") {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseDuration(name, raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "setting", name, "provided", raw, "default", fallback.String(), "error", err)
		return fallback
	}
	return d
}
