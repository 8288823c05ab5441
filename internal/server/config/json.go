package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/flagx"
	"github.com/dmitrijs2005/coursesell/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON configuration file.
// Durations accept both strings ("15m") and integer nanoseconds.
//
// Only fields present in the file are applied; absent keys keep the value
// from the previous layer.
type JsonConfig struct {
	HTTPAddr             *string         `json:"http_addr"`
	GRPCAddr             *string         `json:"grpc_addr"`
	DatabaseDSN          *string         `json:"database_dsn"`
	SecretKey            *string         `json:"secret_key"`
	SessionTTL           *timex.Duration `json:"session_ttl"`
	ResetTokenTTL        *timex.Duration `json:"reset_token_ttl"`
	BcryptCost           *int            `json:"bcrypt_cost"`
	CookieName           *string         `json:"cookie_name"`
	CookieSecure         *bool           `json:"cookie_secure"`
	CookieSameSite       *string         `json:"cookie_samesite"`
	FrontendURL          *string         `json:"frontend_url"`
	S3RootUser           *string         `json:"s3_root_user"`
	S3RootPassword       *string         `json:"s3_root_password"`
	S3Bucket             *string         `json:"s3_bucket"`
	S3Region             *string         `json:"s3_region"`
	S3BaseEndpoint       *string         `json:"s3_base_endpoint"`
	S3PublicURL          *string         `json:"s3_public_url"`
	SMTPHost             *string         `json:"smtp_host"`
	SMTPPort             *int            `json:"smtp_port"`
	SMTPUser             *string         `json:"smtp_user"`
	SMTPPassword         *string         `json:"smtp_password"`
	MailFrom             *string         `json:"mail_from"`
	FeedReconnectInitial *timex.Duration `json:"feed_reconnect_initial"`
	FeedReconnectMax     *timex.Duration `json:"feed_reconnect_max"`
	AuthRatePerMinute    *int            `json:"auth_rate_per_minute"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Nothing is
// loaded when the flag is absent; unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFile(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.CookieName, c.CookieName)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.CookieSameSite, c.CookieSameSite)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setDuration(&config.FeedReconnectInitial, c.FeedReconnectInitial)
	setDuration(&config.FeedReconnectMax, c.FeedReconnectMax)
	setInt(&config.AuthRatePerMinute, c.AuthRatePerMinute)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
