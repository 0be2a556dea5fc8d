package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-r string   database driver ("pgx" or "sqlite")
//	-d string   database DSN
//	-m int      max open database connections
//	-s string   secret key for cookies and recovery tokens
//	-t int      session TTL, hours
//	-l string   log level
//
// Only these flags are taken from args (see flagx.FilterArgs), so other
// components can share the command line.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-r", "-d", "-m", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run http server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to run grpc health server")
	fs.StringVar(&config.DatabaseDriver, "r", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxOpenConns, "m", config.MaxOpenConns, "max open database connections")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session ttl (in hours)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
		}
	})
	return nil
}
