package config

import "github.com/spf13/pflag"

// BindFlags registers the client flags on fs with the current values of cfg
// as defaults. Parsing fs overwrites the bound fields.
//
//	-a, --address      address:port of the server
//	-i, --interval     online status check interval
//	-t, --timeout      per-call timeout
//	-d, --database     path of the local SQLite cache
//	    --token        access token
//	-l, --log-level    debug, info, warn or error
//	-c, --config       JSON config file (read before flags, see LoadConfig)
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ServerEndpointAddr, "address", "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVarP(&cfg.OnlineCheckInterval, "interval", "i", cfg.OnlineCheckInterval, "online check interval")
	fs.DurationVarP(&cfg.CallTimeout, "timeout", "t", cfg.CallTimeout, "timeout of a single server call")
	fs.StringVarP(&cfg.DatabasePath, "database", "d", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "access token")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	fs.StringP("config", "c", "", "JSON config file")
}
