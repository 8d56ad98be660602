package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "DEV"
	EnvProduction  = "PROD"
)

type AppConfig struct {
	KeycloakRealm  string
	KeycloakURL    string
	PostgresURL    string
	// RedisURL is optional; empty disables poll rate limiting.
	RedisURL       string
	NonceSecret    string
	BaseURL        string
	Port           string
	PollRateLimit  int
	PollRateWindow time.Duration
	FeedLimit      int
	TickLocation   *time.Location
	// AppEnv is EnvDevelopment or EnvProduction.
	AppEnv         string
	LogLevel       slog.Level
}

func LoadConfig() AppConfig {
	cfg := AppConfig{}

	cfg.AppEnv = os.Getenv("APP_ENV")
	cfg.KeycloakRealm = loadRequired("KEYCLOAK_REALM")
	cfg.KeycloakURL = loadRequired("KEYCLOAK_URL")
	cfg.PostgresURL = loadRequired("POSTGRES_URL")
	cfg.NonceSecret = loadRequired("NONCE_SECRET")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.BaseURL = loadOptional("BASE_URL", "")
	cfg.Port = loadOptional("PORT", "8080")
	cfg.PollRateLimit = loadInt("POLL_RATE_LIMIT", 120)
	cfg.PollRateWindow = time.Duration(loadInt("POLL_RATE_WINDOW_SECONDS", 60)) * time.Second
	cfg.FeedLimit = loadInt("FEED_LIMIT", 20)

	tz := loadOptional("TICK_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Error("Invalid TICK_TIMEZONE", "value", tz, "error", err)
		loc = time.UTC
	}
	cfg.TickLocation = loc

	lvlString := loadOptional("LOG_LEVEL", "INFO")
	cfg.LogLevel, err = parseLogLevel(lvlString)
	if err != nil {
		slog.Error("Invalid LOG_LEVEL", "error", err)
		cfg.LogLevel = slog.LevelInfo
	}

	return cfg
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	var err = level.UnmarshalText([]byte(s))
	return level, err
}

func loadRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("Required env var not set", "key", key)
		os.Exit(1)
	}
	return value
}

func loadOptional(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func loadInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Error("Invalid integer env var, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}

func (c AppConfig) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
