// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"log/slog"
	"time"
)

// Config holds runtime settings for the fieldsync server.
//
// An empty DatabaseDSN runs the server on in-memory repositories, and an
// empty S3Bucket disables image upload URLs.
type Config struct {
	EndpointAddrGRPC            string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	SeedFile                    string
	LogLevel                    string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	S3PresignExpiry             time.Duration

	// IssueTokenFor makes the binary print an access token for that operator
	// and exit.
	IssueTokenFor string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
	c.S3PresignExpiry = 15 * time.Minute
}

// LoadConfig applies defaults, the JSON file named by -c/-config, then the
// command-line flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
