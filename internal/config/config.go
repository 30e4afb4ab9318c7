package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// Config holds service configuration.
type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:"0.0.0.0:8080"`
	// DatabaseURL enables the finished-game archive when set.
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	ScanInterval     time.Duration `env:"SCAN_INTERVAL" envDefault:"1s"`
	ResponseTimeout  time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"30s"`
	TurnTimeout      time.Duration `env:"TURN_TIMEOUT" envDefault:"0s"`
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"30m"`

	StartingCoins     int `env:"STARTING_COINS" envDefault:"2"`
	StartingInfluence int `env:"STARTING_INFLUENCE" envDefault:"2"`
	MaxSeats          int `env:"MAX_SEATS" envDefault:"6"`

	BotPollInterval time.Duration `env:"BOT_POLL_INTERVAL" envDefault:"250ms"`
	BotMinDelay     time.Duration `env:"BOT_MIN_DELAY" envDefault:"500ms"`
	BotMaxDelay     time.Duration `env:"BOT_MAX_DELAY" envDefault:"2s"`

	WSRateLimit float64 `env:"WS_RATE_LIMIT" envDefault:"5"`
	WSRateBurst int     `env:"WS_RATE_BURST" envDefault:"10"`
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive")
	}
	if c.BotPollInterval <= 0 {
		return fmt.Errorf("BOT_POLL_INTERVAL must be positive")
	}
	if c.BotMaxDelay < c.BotMinDelay {
		return fmt.Errorf("BOT_MAX_DELAY must not be below BOT_MIN_DELAY")
	}
	if c.WSRateLimit <= 0 || c.WSRateBurst <= 0 {
		return fmt.Errorf("WS_RATE_LIMIT and WS_RATE_BURST must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// SessionDefaults is the configuration new sessions start from.
func (c *Config) SessionDefaults() game.SessionConfig {
	return game.SessionConfig{
		StartingCoins:      c.StartingCoins,
		StartingInfluence:  c.StartingInfluence,
		TimeoutSeconds:     int(c.ResponseTimeout / time.Second),
		TurnTimeoutSeconds: int(c.TurnTimeout / time.Second),
		MaxSeats:           c.MaxSeats,
	}.Normalized()
}
