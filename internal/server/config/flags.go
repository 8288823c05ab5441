package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g., ":4000")
//	-grpc string   gRPC health bind address
//	-d string      PostgreSQL DSN
//	-s string      JWT HMAC secret key
//	-t int         session token validity, minutes
//	-r int         reset token validity, minutes
//	-u string      S3 root user
//	-p string      S3 root password
//	-b string      S3 bucket name
//	-g string      S3 region
//	-e string      S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-smtp string   SMTP host (empty logs emails instead of sending)
//	-log string    log level
//
// Duration flags are integers in minutes and apply only when present.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-grpc", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-smtp", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP API")
	fs.StringVar(&config.GRPCAddr, "grpc", config.GRPCAddr, "address and port to run the gRPC health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session token validity (in minutes)")
	resetTTL := fs.Int("r", int(config.ResetTokenTTL.Minutes()), "reset token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SMTPHost, "smtp", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.LogLevel, "log", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// minute-granularity flags only override when given explicitly, so a
	// "90s" from the environment survives
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		case "r":
			config.ResetTokenTTL = time.Duration(*resetTTL) * time.Minute
		}
	})
}
