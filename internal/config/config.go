package config

import (
	"os"
	"strconv"

	"bioflow/internal/telemetry"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIBaseURL   string
	ServerPort   string
	RedisAddr    string
	Workers      int
	PollMaxSecs  int
	DownloadDir  string
	WorkflowFile string
}

// Load loads configuration from a .env file if present, then environment
// variables, with defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		telemetry.Logger.Info("No .env file found, using environment variables")
	}

	return &Config{
		APIBaseURL:   getEnv("API_BASE_URL", "https://mmb.irbbarcelona.org/biobb-api/rest/v1/"),
		ServerPort:   getEnv("PORT", "8080"),
		RedisAddr:    getEnv("REDIS_ADDR", "redis:6379"),
		Workers:      getEnvInt("WORKERS", 4),
		PollMaxSecs:  getEnvInt("POLL_MAX_SECONDS", 0),
		DownloadDir:  getEnv("DOWNLOAD_DIR", "."),
		WorkflowFile: getEnv("WORKFLOW_FILE", ""),
	}
}

// getEnv gets an environment variable or returns the default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
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
