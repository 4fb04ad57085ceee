package config

import (
	"os"
	"strconv"
	"time"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogLevel     string

	// Garden service
	DBPath           string
	MigrationsPath   string
	AdminLogin       string
	AdminPassword    string
	SSEKeepAlive     time.Duration
	SubscriberBuffer int
	AssetsDir        string

	// Board client
	GardenURL string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		DBPath:           getEnv("GARDEN_DB_PATH", "data/db/garden.db"),
		MigrationsPath:   getEnv("GARDEN_MIGRATIONS", "migrations/001_init_garden.sql"),
		AdminLogin:       getEnv("GARDEN_ADMIN_LOGIN", "admin"),
		AdminPassword:    getEnv("GARDEN_ADMIN_PASSWORD", "admin"),
		SSEKeepAlive:     getEnvAsDuration("SSE_KEEPALIVE", 15*time.Second),
		SubscriberBuffer: getEnvAsInt("SUBSCRIBER_BUFFER", 64),
		AssetsDir:        getEnv("GARDEN_ASSETS_DIR", "assets"),

		GardenURL: getEnv("GARDEN_URL", "http://localhost:3000"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
