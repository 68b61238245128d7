package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-t int      session validity, minutes
//	-x int      reset token validity, minutes
//	-k int      bcrypt cost
//	-u string   base URL for email links
//	-r string   Redis address for throttling
//	-l int      attempts allowed per window
//	-w int      throttle window, minutes
//	-m string   metrics listen address
//	-p int      page size
//
// Only these flags are parsed; anything else in args is ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-x", "-k", "-u", "-r", "-l", "-w", "-m", "-p"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")
	resetValidity := fs.Int("x", int(config.ResetTokenValidityDuration.Minutes()), "reset token validity (in minutes)")

	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.BaseURL, "u", config.BaseURL, "base URL for email links")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address (empty disables throttling)")
	fs.IntVar(&config.ThrottleLimit, "l", config.ThrottleLimit, "attempts per throttle window")

	throttleWindow := fs.Int("w", int(config.ThrottleWindow.Minutes()), "throttle window (in minutes)")

	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address (empty disables)")
	fs.IntVar(&config.PageSize, "p", config.PageSize, "page size")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Minute flags only override when given, so sub-minute JSON values survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
		case "x":
			config.ResetTokenValidityDuration = time.Duration(*resetValidity) * time.Minute
		case "w":
			config.ThrottleWindow = time.Duration(*throttleWindow) * time.Minute
		}
	})
	return nil
}
