package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	// RedisURL backs the feature-flag store; empty disables it.
	RedisURL string

	StaffDirectoryBaseURL        string
	StaffDirectoryTimeoutSeconds int

	StaffSyncIntervalMinutes int

	// ApAreaTeamOverrides maps national team codes to the AP area their
	// members belong to, e.g. "CRU001=NAT,CRU002=NAT".
	ApAreaTeamOverrides map[string]string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	databasePort, err := strconv.Atoi(getEnv("DATABASE_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_PORT: %w", err)
	}

	staffTimeout, err := strconv.Atoi(getEnv("STAFF_DIRECTORY_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid STAFF_DIRECTORY_TIMEOUT_SECONDS: %w", err)
	}

	syncInterval, err := strconv.Atoi(getEnv("STAFF_SYNC_INTERVAL_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid STAFF_SYNC_INTERVAL_MINUTES: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     databasePort,
		DatabaseUser:     getEnv("DATABASE_USER", "placements"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "dev"),
		DatabaseName:     getEnv("DATABASE_NAME", "placements"),
		DatabaseSSLMode:  getEnv("DATABASE_SSL_MODE", "disable"),

		RedisURL: os.Getenv("REDIS_URL"),

		StaffDirectoryBaseURL:        getEnv("STAFF_DIRECTORY_BASE_URL", "http://localhost:9091"),
		StaffDirectoryTimeoutSeconds: staffTimeout,

		StaffSyncIntervalMinutes: syncInterval,

		ApAreaTeamOverrides: parseKVEnv("AP_AREA_TEAM_OVERRIDES"),

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func parseKVEnv(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
