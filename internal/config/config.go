package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration for the CLI
type Config struct {
	// API Configuration
	API APIConfig

	// Credentials used for non-interactive login
	Credentials CredentialsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig describes the REST backend when no project config selects one
type APIConfig struct {
	URL       string        // Base URL, e.g. http://localhost:8000/api/
	LoginPath string        // Canonical login path for this deployment
	Timeout   time.Duration // Transport timeout
}

// CredentialsConfig holds credentials for CI usage
type CredentialsConfig struct {
	Username string
	Password string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout := 30 * time.Second
	if raw := os.Getenv("TASKDESK_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		timeout = d
	}

	// Logging configuration - the CLI is quiet unless asked
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		API: APIConfig{
			URL:       os.Getenv("TASKDESK_API_URL"),
			LoginPath: os.Getenv("TASKDESK_LOGIN_PATH"),
			Timeout:   timeout,
		},
		Credentials: CredentialsConfig{
			Username: os.Getenv("TASKDESK_USERNAME"),
			Password: os.Getenv("TASKDESK_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
