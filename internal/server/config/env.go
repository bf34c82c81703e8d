package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/betclever/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "BETCLEVER_"

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file (path from -env-file, ".env" by default)
// into the process environment without overriding variables that are
// already set, then copies BETCLEVER_* variables into config.
//
// A missing default .env is fine; a missing file named explicitly is not,
// and neither is a malformed value. Both panic, like the JSON loader.
func parseEnv(config *Config) {
	envFile := flagx.EnvFileFlag()
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}

	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_ADDR", &config.GRPCAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	dur("ACCESS_TOKEN_TTL", &config.AccessTokenTTL)
	dur("REFRESH_TOKEN_TTL", &config.RefreshTokenTTL)
	dur("RESET_TOKEN_TTL", &config.ResetTokenTTL)
	dur("PRESIGN_TTL", &config.PresignTTL)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("REDIS_URL", &config.RedisURL)
	str("SENDGRID_API_KEY", &config.SendGridAPIKey)
	str("MAIL_FROM", &config.MailFrom)
	str("MAIL_FROM_NAME", &config.MailFromName)
	str("PUBLIC_BASE_URL", &config.PublicBaseURL)
	str("LOG_BACKEND", &config.LogBackend)
	str("LOG_LEVEL", &config.LogLevel)
	dur("HEALTH_CHECK_INTERVAL", &config.HealthCheckInterval)

	if v, ok := os.LookupEnv(EnvPrefix + "CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxUploadBytes = n
	}
}
