package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Cron     CronConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32

	// SeedUsers is only used by the memory driver, entries are "id:name".
	SeedUsers []string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
	// OverviewConcurrency bounds the number of per-user summaries computed at once.
	OverviewConcurrency int
}

// CronConfig holds background job configuration
type CronConfig struct {
	Enabled            bool
	StaleBreakInterval time.Duration
	StreamKeepAlive    time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Environment variables still apply without a .env file.
		slog.Debug("No .env file loaded", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:    getEnv("DB_DRIVER", DriverPostgres),
		Host:      getEnv("DB_HOST", "localhost"),
		Port:      dbPort,
		User:      getEnv("DB_USER", "postgres"),
		Password:  getEnv("DB_PASSWORD", ""),
		Name:      getEnv("DB_NAME", "presence"),
		SSLMode:   getEnv("DB_SSL_MODE", "disable"),
		MaxConns:  int32(maxConns),
		MinConns:  int32(minConns),
		SeedUsers: getEnvSlice("MEMORY_SEED_USERS"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	overviewConcurrency, err := strconv.Atoi(getEnv("OVERVIEW_CONCURRENCY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERVIEW_CONCURRENCY: %w", err)
	}

	config.App = AppConfig{
		Port:                appPort,
		Env:                 getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Timezone:            getEnv("APP_TIMEZONE", "Asia/Kolkata"),
		AllowedOrigins:      getEnvSlice("CORS_ALLOWED_ORIGINS"),
		OverviewConcurrency: overviewConcurrency,
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// Cron configuration
	cronEnabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}

	staleBreakInterval, err := time.ParseDuration(getEnv("CRON_STALE_BREAK_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_STALE_BREAK_INTERVAL: %w", err)
	}

	keepAlive, err := time.ParseDuration(getEnv("SSE_KEEP_ALIVE", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SSE_KEEP_ALIVE: %w", err)
	}

	config.Cron = CronConfig{
		Enabled:            cronEnabled,
		StaleBreakInterval: staleBreakInterval,
		StreamKeepAlive:    keepAlive,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.Database.Driver)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	if c.App.OverviewConcurrency <= 0 {
		return fmt.Errorf("OVERVIEW_CONCURRENCY must be positive")
	}

	if c.Cron.StaleBreakInterval <= 0 {
		return fmt.Errorf("CRON_STALE_BREAK_INTERVAL must be positive")
	}

	if c.Cron.StreamKeepAlive <= 0 {
		return fmt.Errorf("SSE_KEEP_ALIVE must be positive")
	}
	return nil
}

// Location returns the reference timezone every attendance computation uses.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.App.Timezone)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
