package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":3000")
//	-g string   gRPC health bind address ("" disables)
//	-t string   database driver: pgx, sqlite or memory
//	-d string   database DSN
//	-s string   access token secret
//	-r string   refresh token secret
//	-at string  access token validity ("15m")
//	-rt string  refresh token validity ("8d")
//	-st string  stored session validity ("7d")
//	-l string   log level
//	-o string   comma-separated CORS origins
//
// Only these flags are taken from os.Args; the rest are filtered out with
// flagx.FilterArgs so that -c / -config do not make parsing fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-t", "-d", "-s", "-r", "-at", "-rt", "-st", "-l", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "address and port to run the HTTP server")
	fs.StringVar(&config.GRPCAddress, "g", config.GRPCAddress, "address and port to run the gRPC health server")
	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver (pgx, sqlite, memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "r", config.RefreshTokenSecret, "refresh token secret")
	fs.Func("at", "access token validity (e.g. 15m)", func(v string) error {
		d, err := timex.ParseDuration(v)
		if err == nil {
			config.AccessTokenValidityDuration = d
		}
		return err
	})
	fs.Func("rt", "refresh token validity (e.g. 7d)", func(v string) error {
		d, err := timex.ParseDuration(v)
		if err == nil {
			config.RefreshTokenValidityDuration = d
		}
		return err
	})
	fs.Func("st", "stored session validity (e.g. 7d)", func(v string) error {
		d, err := timex.ParseDuration(v)
		if err == nil {
			config.SessionValidityDuration = d
		}
		return err
	})
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.Func("o", "comma-separated CORS allowed origins", func(v string) error {
		config.AllowedOrigins = strings.Split(v, ",")
		return nil
	})

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
