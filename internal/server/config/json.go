package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/betclever/internal/flagx"
	"github.com/dmitrijs2005/betclever/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept both "15m" strings and integer nanoseconds.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	GRPCAddr            string         `json:"grpc_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	AccessTokenTTL      timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL     timex.Duration `json:"refresh_token_ttl"`
	ResetTokenTTL       timex.Duration `json:"reset_token_ttl"`
	PresignTTL          timex.Duration `json:"presign_ttl"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	RedisURL            string         `json:"redis_url"`
	SendGridAPIKey      string         `json:"sendgrid_api_key"`
	MailFrom            string         `json:"mail_from"`
	MailFromName        string         `json:"mail_from_name"`
	PublicBaseURL       string         `json:"public_base_url"`
	CORSOrigins         []string       `json:"cors_origins"`
	MaxUploadBytes      int64          `json:"max_upload_bytes"`
	LogBackend          string         `json:"log_backend"`
	LogLevel            string         `json:"log_level"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
}

// parseJson overlays values from the file named by -c/-config.
// Without the flag nothing is loaded; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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
	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	dur := func(src timex.Duration, dst *time.Duration) {
		if src.IsSet() {
			*dst = src.Duration
		}
	}

	str(c.HTTPAddr, &config.HTTPAddr)
	str(c.GRPCAddr, &config.GRPCAddr)
	str(c.DatabaseDSN, &config.DatabaseDSN)
	str(c.SecretKey, &config.SecretKey)
	dur(c.AccessTokenTTL, &config.AccessTokenTTL)
	dur(c.RefreshTokenTTL, &config.RefreshTokenTTL)
	dur(c.ResetTokenTTL, &config.ResetTokenTTL)
	dur(c.PresignTTL, &config.PresignTTL)
	str(c.S3RootUser, &config.S3RootUser)
	str(c.S3RootPassword, &config.S3RootPassword)
	str(c.S3Bucket, &config.S3Bucket)
	str(c.S3Region, &config.S3Region)
	str(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	str(c.RedisURL, &config.RedisURL)
	str(c.SendGridAPIKey, &config.SendGridAPIKey)
	str(c.MailFrom, &config.MailFrom)
	str(c.MailFromName, &config.MailFromName)
	str(c.PublicBaseURL, &config.PublicBaseURL)
	str(c.LogBackend, &config.LogBackend)
	str(c.LogLevel, &config.LogLevel)
	dur(c.HealthCheckInterval, &config.HealthCheckInterval)

	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
}
