package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SERVER_HOST", "SERVER_PORT", "STORE_BACKEND", "DATABASE_URL", "REDIS_URL",
		"NATS_URL", "STALE_THRESHOLD", "REAP_INTERVAL", "MAX_MATCH_RADIUS_KM", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.StaleThreshold)
	assert.Equal(t, time.Minute, cfg.ReapInterval)
	assert.Zero(t, cfg.MaxMatchRadiusKm, "Radius should default to unbounded")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "5000")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STALE_THRESHOLD", "90s")
	t.Setenv("MAX_MATCH_RADIUS_KM", "2.5")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", cfg.Addr())
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 90*time.Second, cfg.StaleThreshold)
	assert.Equal(t, 2.5, cfg.MaxMatchRadiusKm)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"redis without url", map[string]string{"STORE_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "firestore"}},
		{"bad threshold", map[string]string{"STALE_THRESHOLD": "five minutes"}},
		{"zero interval", map[string]string{"REAP_INTERVAL": "0s"}},
		{"bad radius", map[string]string{"MAX_MATCH_RADIUS_KM": "far"}},
		{"negative radius", map[string]string{"MAX_MATCH_RADIUS_KM": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()

			assert.Error(t, err)
		})
	}
}
