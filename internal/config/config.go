package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dateLayout is the format of date-valued settings
const dateLayout = "2006-01-02"

// Config holds all configuration for the application
type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Server      ServerConfig
	Leaderboard LeaderboardConfig
	Log         LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int
}

// LeaderboardConfig holds leaderboard navigation, cache and prefetch settings
type LeaderboardConfig struct {
	CompetitionStart time.Time
	Freshness        time.Duration
	PrefetchWorkers  int
	PrefetchQueue    int
	PrefetchTimeout  time.Duration
	SessionIdleTTL   time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	Development bool
}

// Load loads configuration from environment variables, after reading a
// .env file from the parent or current directory if one exists.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	envFileFound := true
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(); err != nil {
			envFileFound = false
		}
	}

	start, err := getEnvAsDate("COMPETITION_START", "2025-01-01")
	if err != nil {
		return nil, envFileFound, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			DBName:      getEnv("DB_NAME", "runcomp"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Username: getEnv("REDIS_USERNAME", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port: getEnvAsInt("BACKEND_PORT", 8000),
		},
		Leaderboard: LeaderboardConfig{
			CompetitionStart: start,
			Freshness:        getEnvAsDuration("LEADERBOARD_FRESHNESS", 2*time.Minute),
			PrefetchWorkers:  getEnvAsInt("PREFETCH_WORKERS", 4),
			PrefetchQueue:    getEnvAsInt("PREFETCH_QUEUE", 64),
			PrefetchTimeout:  getEnvAsDuration("PREFETCH_TIMEOUT", 10*time.Second),
			SessionIdleTTL:   getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	return cfg, envFileFound, nil
}

// GetDSN returns the PostgreSQL DSN
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

// getEnvAsDate parses a YYYY-MM-DD date in UTC. Unlike the other helpers a
// malformed value is an error, since a wrong start date silently changes
// which periods can be navigated.
func getEnvAsDate(key, defaultValue string) (time.Time, error) {
	value := getEnv(key, defaultValue)
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return t, nil
}
