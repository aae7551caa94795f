package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	CORS        CORSConfig
	Ledger      LedgerConfig
	Environment string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
	// EncryptionKey is an optional fernet key. When set, ledger documents are encrypted at rest.
	EncryptionKey string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LedgerConfig holds the liquidation engine and maintenance settings
type LedgerConfig struct {
	// Epsilon is the quantity tolerance applied to sell orders.
	Epsilon float64
	// HealSchedule is a cron spec for the periodic healing sweep, or "off".
	HealSchedule string
}

// DefaultEpsilon is the quantity tolerance used when LIQUIDATION_EPSILON is unset.
const DefaultEpsilon = 1e-4

// Load reads configuration from environment variables and .env file.
// Invalid values are replaced by their defaults and reported in the returned error,
// alongside a usable Config.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var errs []error

	epsilon, err := getEnvFloat("LIQUIDATION_EPSILON", DefaultEpsilon)
	if err != nil {
		errs = append(errs, err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path:          getEnv("DB_PATH", "./data/position_ledger.db"),
			EncryptionKey: getEnv("LEDGER_ENCRYPTION_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Ledger: LedgerConfig{
			Epsilon:      epsilon,
			HealSchedule: getEnv("HEAL_SCHEDULE", "@hourly"),
		},
		Environment: getEnv("ENVIRONMENT", "local"),
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, errors.Join(errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvFloat parses a positive float environment variable, falling back to the default.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return defaultValue, fmt.Errorf("invalid value %q for %s, using %g", value, key, defaultValue)
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
