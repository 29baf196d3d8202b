package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "playdate:notifications", cfg.Redis.Queue)
	assert.Equal(t, 104, cfg.MaxSeriesOccurrences)
	assert.False(t, cfg.TrustProxy)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENV", "production")
	t.Setenv("TX_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 750*time.Millisecond, cfg.TxTimeout)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.TrustProxy)
}

func TestLoad_MissingSecretPanics(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	assert.Panics(t, func() { _, _ = Load() })
}
