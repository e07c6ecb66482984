package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the process-level knobs of the CLI. Credentials are
// resolved separately, see Load.
type Settings struct {
	ServiceName string // e.g. "lacework-cli"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	Timeout     time.Duration
	TokenExpiry time.Duration
	MaxAttempts int

	// Client-side pacing; zero disables it.
	RequestsPerSecond float64
	Burst             int

	// Shared token store; empty disables it.
	RedisAddr string
	RedisDB   int
	RedisPass string

	// AWS Secrets Manager credential source.
	AWSRegion string
	UseAWS    bool
	CacheTTL  time.Duration
}

// LoadSettings loads settings from environment variables and .env file if present.
func LoadSettings() *Settings {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Settings{
		ServiceName:       GetEnv("SERVICE_NAME", "lacework-cli"),
		Env:               GetEnv("ENV", "dev"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		Timeout:           GetEnvDuration("LW_TIMEOUT", 60*time.Second),
		TokenExpiry:       GetEnvDuration("LW_TOKEN_EXPIRY", time.Hour),
		MaxAttempts:       GetEnvInt("LW_MAX_ATTEMPTS", 3),
		RequestsPerSecond: GetEnvFloat("LW_RATE_LIMIT", 0),
		Burst:             GetEnvInt("LW_RATE_BURST", 1),
		RedisAddr:         GetEnv("REDIS_ADDR", ""),
		RedisDB:           GetEnvInt("REDIS_DB", 0),
		RedisPass:         GetEnv("REDIS_PASS", ""),
		AWSRegion:         GetEnv("AWS_REGION", "us-east-2"),
		UseAWS:            GetEnvBool("LW_USE_AWS_SECRETS", false),
		CacheTTL:          GetEnvDuration("CACHE_TTL", 24*time.Hour),
	}
}
