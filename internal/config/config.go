package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	ServerHost       string
	ServerPort       string
	StoreBackend     string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	StaleThreshold   time.Duration
	ReapInterval     time.Duration
	MaxMatchRadiusKm float64
	LogLevel         string
}

func LoadConfig() (*Config, error) {
	staleThreshold, err := time.ParseDuration(getEnv("STALE_THRESHOLD", "5m"))
	if err != nil {
		return nil, errors.New("invalid STALE_THRESHOLD format")
	}
	reapInterval, err := time.ParseDuration(getEnv("REAP_INTERVAL", "1m"))
	if err != nil {
		return nil, errors.New("invalid REAP_INTERVAL format")
	}
	radius, err := strconv.ParseFloat(getEnv("MAX_MATCH_RADIUS_KM", "0"), 64)
	if err != nil {
		return nil, errors.New("invalid MAX_MATCH_RADIUS_KM format")
	}

	cfg := &Config{
		ServerHost:       os.Getenv("SERVER_HOST"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		StoreBackend:     getEnv("STORE_BACKEND", BackendMemory),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		NATSURL:          os.Getenv("NATS_URL"),
		StaleThreshold:   staleThreshold,
		ReapInterval:     reapInterval,
		MaxMatchRadiusKm: radius,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	// Validate required fields
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StaleThreshold <= 0 {
		return nil, errors.New("STALE_THRESHOLD must be positive")
	}
	if cfg.ReapInterval <= 0 {
		return nil, errors.New("REAP_INTERVAL must be positive")
	}
	if cfg.MaxMatchRadiusKm < 0 {
		return nil, errors.New("MAX_MATCH_RADIUS_KM must not be negative")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
