package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "COURSESELL_"

// parseEnv loads the dotenv file named by -env (or ./.env when present) into
// the process environment without overriding variables that are already set,
// then copies every COURSESELL_* variable into config.
//
// Malformed numeric or duration values panic, like malformed flags do.
func parseEnv(config *Config, args []string) {
	envFile := flagx.EnvFile(args)
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("GRPC_ADDR", &config.GRPCAddr)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envDuration("SESSION_TTL", &config.SessionTTL)
	envDuration("RESET_TOKEN_TTL", &config.ResetTokenTTL)
	envInt("BCRYPT_COST", &config.BcryptCost)
	envString("COOKIE_NAME", &config.CookieName)
	envBool("COOKIE_SECURE", &config.CookieSecure)
	envString("COOKIE_SAMESITE", &config.CookieSameSite)
	envString("FRONTEND_URL", &config.FrontendURL)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("S3_PUBLIC_URL", &config.S3PublicURL)
	envString("SMTP_HOST", &config.SMTPHost)
	envInt("SMTP_PORT", &config.SMTPPort)
	envString("SMTP_USER", &config.SMTPUser)
	envString("SMTP_PASSWORD", &config.SMTPPassword)
	envString("MAIL_FROM", &config.MailFrom)
	envDuration("FEED_RECONNECT_INITIAL", &config.FeedReconnectInitial)
	envDuration("FEED_RECONNECT_MAX", &config.FeedReconnectMax)
	envInt("AUTH_RATE_PER_MINUTE", &config.AuthRatePerMinute)
	envString("LOG_LEVEL", &config.LogLevel)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envBool(name string, dst *bool) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
