// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion     string
	S3AuditBucket string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// SES
	SESSenderEmail string
	AdminEmail     string

	// Assignment
	AssignmentThreshold float64

	// Application
	Port     string
	Stage    string
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		S3AuditBucket: getEnv("S3_AUDIT_BUCKET", "bel-energy-assignment-audit-dev"),

		// Database
		DBHost:     getEnv("DB_HOST", getEnv("BEL_DB_HOST", "localhost")),
		DBPort:     getEnvInt("DB_PORT", getEnvInt("BEL_DB_PORT", 5432)),
		DBName:     getEnv("DB_NAME", getEnv("BEL_DB_NAME", "bel_energy")),
		DBUser:     getEnv("DB_USER", getEnv("BEL_DB_USER", "postgres")),
		DBPassword: getEnv("DB_PASSWORD", getEnv("BEL_DB_PASSWORD", "")),

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),

		// Assignment
		AssignmentThreshold: getEnvFloat("ASSIGNMENT_THRESHOLD", 40),

		// Application
		Port:     getEnv("PORT", "8080"),
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as float64 or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
