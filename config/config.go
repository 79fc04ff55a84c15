package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the storefront API.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	FirebaseBucket string
	AllowedOrigins []string
	AdminEmail     string
	AdminPassword  string

	// Requests per minute allowed per client IP on the public write endpoints.
	RateLimitPerMinute int
	// Lines pushed at once by POST /api/cart/sync. 1 keeps client order.
	SyncConcurrency int
}

func LoadEnv() error {
	// A missing .env file is fine: in production the variables are set directly.
	if err := godotenv.Load(); err != nil {
		return nil
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if os.Getenv("FIREBASE_STORAGE_BUCKET") == "" {
		slog.Warn("FIREBASE_STORAGE_BUCKET not set - product image uploads will fail")
	}
	if os.Getenv("REDIS_ADDR") == "" {
		slog.Warn("REDIS_ADDR not set - cart locks are local to this process")
	}
	if os.Getenv("FRONTEND_URL") == "" {
		slog.Warn("FRONTEND_URL not set - CORS may not work correctly")
	}
	if os.Getenv("SMTP_HOST") == "" || os.Getenv("SMTP_PORT") == "" || os.Getenv("SMTP_FROM") == "" {
		slog.Warn("SMTP not fully configured - contact notifications will not be sent")
	}

	return nil
}

// Load reads the environment into a Config, applying defaults.
func Load() Config {
	return Config{
		AppEnv:             GetEnv("APP_ENV", "development"),
		Port:               GetEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           time.Duration(GetEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		FirebaseBucket:     os.Getenv("FIREBASE_STORAGE_BUCKET"),
		AllowedOrigins:     allowedOrigins(),
		AdminEmail:         GetEnv("ADMIN_EMAIL", "admin@mira.local"),
		AdminPassword:      GetEnv("ADMIN_PASSWORD", "admin123"),
		RateLimitPerMinute: GetEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SyncConcurrency:    GetEnvInt("CART_SYNC_CONCURRENCY", 1),
	}
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// allowedOrigins collects the CORS origins, dropping empty entries.
func allowedOrigins() []string {
	var origins []string
	for _, o := range []string{os.Getenv("FRONTEND_URL"), os.Getenv("ADMIN_URL")} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	for _, o := range strings.Split(os.Getenv("CORS_EXTRA_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns the integer value of key, or defaultValue when unset or malformed.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
