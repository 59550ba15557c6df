package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "SESSION_TTL", "RATE_LIMIT_RPS", "CORS_ORIGIN"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.InDelta(t, 2.0, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, "prescription_complete", cfg.NotifyChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SESSION_TTL", "3600")
	t.Setenv("SWEEP_INTERVAL", "90s")
	t.Setenv("RATE_LIMIT_BURST", "oops")
	t.Setenv("LLM_PROVIDER", "anthropic")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 90*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}
