// Package config loads engine-demo settings from environment variables,
// with sane defaults for local development. No secrets are ever hardcoded.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	// MetricsPort is where cmd/enginedemo serves /metrics.
	MetricsPort string

	// LogLevel controls the slog handler level ("debug", "info", "warn", "error").
	LogLevel string

	// DefaultPrefetchCount seeds the per-channel (non-global) basic.qos
	// prefetch count used by the scripted demo session.
	DefaultPrefetchCount uint16
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	return &Config{
		MetricsPort:          getEnv("METRICS_PORT", "9090"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DefaultPrefetchCount: getEnvUint16("DEFAULT_PREFETCH_COUNT", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvUint16(key string, fallback uint16) uint16 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return fallback
	}
	return uint16(n)
}
