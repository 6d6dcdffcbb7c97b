package config

import (
	"log/slog"
	"time"
)

// Config holds runtime settings for the fieldsync client.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	CallTimeout         time.Duration
	DatabasePath        string
	AccessToken         string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.CallTimeout = 10 * time.Second
	c.DatabasePath = "fieldsync.db"
	c.LogLevel = "warn"
}

// LoadConfig applies defaults, the JSON file named by -c/-config and the
// FIELDSYNC_* environment, in that order. Command-line flags are bound on top
// of the result by BindFlags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, falling back to warn.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}
