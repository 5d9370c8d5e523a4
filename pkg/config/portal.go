package config

import (
	"time"

	"github.com/joho/godotenv"
)

// PortalConfig holds runtime configuration for the portal API.
type PortalConfig struct {
	Environment        string
	Addr               string
	LogLevel           string
	StoreBackend       string
	DatabaseURL        string
	MigrationsDir      string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	JWTSecret          string
	AccessTokenTTL     time.Duration
	MaxAttachmentKB    int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadPortalConfig reads configuration from the environment, pulling in a
// local .env file first when one exists.
func LoadPortalConfig() PortalConfig {
	_ = godotenv.Load()
	return PortalConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		StoreBackend:       GetString("STORE_BACKEND", "memory"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://portal:portal@db:5432/portal?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		RedisAddr:          GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      GetString("REDIS_PASSWORD", ""),
		RedisDB:            GetInt("REDIS_DB", 0),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 720)) * time.Minute,
		MaxAttachmentKB:    GetInt("MAX_ATTACHMENT_KB", 512),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
