package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the engine.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	AppEnv string
	Port   string

	// Postgres
	PGHost        string
	PGPort        string
	PGUser        string
	PGDB          string
	PGPassword    string
	DBAutoMigrate bool

	// Cache
	CacheBackend  string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Security
	JWTSecret string

	// AS2
	AS2ReportingUA  string
	AS2StrictSigner bool
	AS2HTTPTimeout  time.Duration
	AS2AsyncMDNURL  string
	AS2RateLimit    float64
	AS2RateBurst    int
	DuplicateWindow time.Duration
	MaxAS2BodyBytes int64

	// SFTP polling
	SFTPTimeout            time.Duration
	SFTPMaxConcurrentPolls int

	// Workers
	PendingWorkerInterval time.Duration
	PendingBatchSize      int
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory or its parent when one exists.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil && !os.IsNotExist(err) {
			log.Printf("[Config] Warning: error loading .env file: %v. Relying on OS environment variables.", err)
		}
	}

	cfg := &AppConfig{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		PGHost:        getEnv("PG_HOST", "localhost"),
		PGPort:        getEnv("PG_PORT", "5432"),
		PGUser:        getEnv("PG_USER", "edigate"),
		PGDB:          getEnv("PG_DB", "edigate"),
		PGPassword:    getEnv("PG_PASSWORD", ""),
		DBAutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AS2ReportingUA:  getEnv("AS2_REPORTING_UA", "edigate AS2"),
		AS2StrictSigner: getEnvAsBool("AS2_STRICT_SIGNER", false),
		AS2HTTPTimeout:  getEnvAsDuration("AS2_HTTP_TIMEOUT", 60*time.Second),
		AS2AsyncMDNURL:  getEnv("AS2_ASYNC_MDN_URL", ""),
		AS2RateLimit:    getEnvAsFloat("AS2_RATE_LIMIT", 10),
		AS2RateBurst:    getEnvAsInt("AS2_RATE_BURST", 20),
		DuplicateWindow: getEnvAsDuration("DUPLICATE_WINDOW", 24*time.Hour),
		MaxAS2BodyBytes: int64(getEnvAsInt("AS2_MAX_BODY_BYTES", 20*1024*1024)),

		SFTPTimeout:            getEnvAsDuration("SFTP_TIMEOUT", 30*time.Second),
		SFTPMaxConcurrentPolls: getEnvAsInt("SFTP_MAX_CONCURRENT_POLLS", 4),

		PendingWorkerInterval: getEnvAsDuration("PENDING_WORKER_INTERVAL", 30*time.Second),
		PendingBatchSize:      getEnvAsInt("PENDING_BATCH_SIZE", 50),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		log.Println("[Config] WARNING: JWT_SECRET not set, using development secret")
		cfg.JWTSecret = "edigate-development-secret"
	}

	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

// PostgresDSN builds the connection string shared by GORM and sqlx
func (c *AppConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr returns host:port for the redis client
func (c *AppConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("[Config] Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("[Config] Invalid number value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("[Config] Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("[Config] Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback)
	return fallback
}
