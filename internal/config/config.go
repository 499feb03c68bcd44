package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Auth     AuthConfig
	Features FeatureConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
}

// DatabaseConfig holds postgres configuration
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	RunMigrations      bool
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Provider      string // "memory" or "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	DefaultTTL    time.Duration
}

// AuthConfig holds token verification configuration. The engine does not
// issue tokens; it only decodes the tenant-member claims the caller
// already carries.
type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

// FeatureConfig holds tunable engine behavior
type FeatureConfig struct {
	// CountRepliesInPostTotal controls whether a reply also bumps the
	// post-level comment total. When true the post total equals the full
	// flat list size including nested replies; when false it counts
	// top-level comments only.
	CountRepliesInPostTotal bool

	EnableMentions     bool
	MaxCommentsPerHour int
	MaxCommentLength   int
}

// Load reads configuration from the environment, falling back to an
// env file outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "9000"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:     env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
			MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 500*time.Millisecond),
			MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "migrations"),
			RunMigrations:      getBoolEnv("DB_RUN_MIGRATIONS", env != "production"),
		},
		Cache: CacheConfig{
			Provider:      getEnv("CACHE_PROVIDER", "memory"),
			RedisURL:      getEnv("REDIS_URL", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
			DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		},
		Features: FeatureConfig{
			CountRepliesInPostTotal: getBoolEnv("COUNT_REPLIES_IN_POST_TOTAL", true),
			EnableMentions:          getBoolEnv("ENABLE_MENTIONS", true),
			MaxCommentsPerHour:      getIntEnv("MAX_COMMENTS_PER_HOUR", 20),
			MaxCommentLength:        getIntEnv("MAX_COMMENT_LENGTH", 10000),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_PROVIDER=redis")
	}
	if c.Server.Environment == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Features.MaxCommentLength <= 0 {
		return fmt.Errorf("MAX_COMMENT_LENGTH must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
