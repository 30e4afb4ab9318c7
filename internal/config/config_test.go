package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, time.Second, cfg.ScanInterval)
	assert.Equal(t, 30*time.Minute, cfg.SessionRetention)

	sc := cfg.SessionDefaults()
	assert.Equal(t, 2, sc.StartingCoins)
	assert.Equal(t, 2, sc.StartingInfluence)
	assert.Equal(t, 30, sc.TimeoutSeconds)
	assert.Equal(t, 0, sc.TurnTimeoutSeconds)
	assert.Equal(t, 6, sc.MaxSeats)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/bluff")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RESPONSE_TIMEOUT", "45s")
	t.Setenv("TURN_TIMEOUT", "2m")
	t.Setenv("MAX_SEATS", "4")
	t.Setenv("WS_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)
	assert.Equal(t, "postgres://localhost/bluff", cfg.DatabaseURL)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.InDelta(t, 2.5, cfg.WSRateLimit, 1e-9)

	sc := cfg.SessionDefaults()
	assert.Equal(t, 45, sc.TimeoutSeconds)
	assert.Equal(t, 120, sc.TurnTimeoutSeconds)
	assert.Equal(t, 4, sc.MaxSeats)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "SCAN_INTERVAL", "soon"},
		{"zero scan", "SCAN_INTERVAL", "0s"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"bad int", "MAX_SEATS", "many"},
		{"zero burst", "WS_RATE_BURST", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
		})
	}

	t.Run("delay range", func(t *testing.T) {
		t.Setenv("BOT_MIN_DELAY", "3s")
		t.Setenv("BOT_MAX_DELAY", "1s")
		_, err := Load()
		require.Error(t, err)
	})
}
