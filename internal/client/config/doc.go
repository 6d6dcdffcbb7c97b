// Package config loads runtime configuration for the fieldsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config.
//  3. FIELDSYNC_ADDRESS, FIELDSYNC_DATABASE, FIELDSYNC_TOKEN and
//     FIELDSYNC_LOG_LEVEL environment variables.
//  4. Command-line flags bound with BindFlags.
//
// # JSON schema
//
// Intervals use timex.Duration, so they may be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "call_timeout": "10s",
//	  "database_path": "fieldsync.db",
//	  "access_token": "...",
//	  "log_level": "info"
//	}
package config
