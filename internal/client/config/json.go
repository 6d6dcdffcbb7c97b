package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration. Zero values
// leave the current setting untouched.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	CallTimeout         timex.Duration `json:"call_timeout"`
	DatabasePath        string         `json:"database_path"`
	AccessToken         string         `json:"access_token"`
	LogLevel            string         `json:"log_level"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.CallTimeout.Duration > 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}

func parseEnv(cfg *Config) {
	cfg.ServerEndpointAddr = flagx.EnvOr("FIELDSYNC_ADDRESS", cfg.ServerEndpointAddr)
	cfg.DatabasePath = flagx.EnvOr("FIELDSYNC_DATABASE", cfg.DatabasePath)
	cfg.AccessToken = flagx.EnvOr("FIELDSYNC_TOKEN", cfg.AccessToken)
	cfg.LogLevel = flagx.EnvOr("FIELDSYNC_LOG_LEVEL", cfg.LogLevel)
}
