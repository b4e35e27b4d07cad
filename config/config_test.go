package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Minute, cfg.SimulationDuration)
	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 5, cfg.BookingCountdown)
	assert.Equal(t, -24.6282, cfg.DefaultLat)
	assert.Equal(t, 25.9231, cfg.DefaultLng)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SIMULATION_DURATION", "30s")
	t.Setenv("DIRECTIONS_ACCESS_TOKEN", "pk.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.SimulationDuration)
	assert.Equal(t, "pk.test", cfg.DirectionsAccessToken)
}

func TestValidate_RequiredKeys(t *testing.T) {
	cfg := Config{SimulationDuration: time.Minute, FrameInterval: time.Millisecond, BookingCountdown: 5}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.DBURL = "postgres://x"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")

	cfg.AuthJWTSecret = "s"
	assert.NoError(t, cfg.Validate())
}
