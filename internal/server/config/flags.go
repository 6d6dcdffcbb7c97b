package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-t", "-seed", "-l", "-u", "-p", "-b", "-g", "-e", "-issue-token",
}

// parseFlags populates Config fields from command-line flags.
//
//	-a string        gRPC bind address (e.g., ":50051")
//	-d string        PostgreSQL DSN, empty for in-memory storage
//	-s string        JWT HMAC secret key
//	-t duration      access token validity (e.g., "24h")
//	-seed string     JSON file with programs, referentials and vessels
//	-l string        log level
//	-u string        S3 root user
//	-p string        S3 root password
//	-b string        S3 bucket name
//	-g string        S3 region
//	-e string        S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-issue-token     print an access token for the given operator and exit
//
// args is filtered with flagx.FilterArgs so -c/-config and unknown flags do
// not stop parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("fieldsync-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&config.SeedFile, "seed", config.SeedFile, "reference data seed file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.IssueTokenFor, "issue-token", config.IssueTokenFor, "print an access token for this operator and exit")

	return fs.Parse(args)
}
