package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string

	// Document store backend: "memory", "sqlite", "postgres", or "mysql"
	StoreType string
	StorePath string // sqlite file path
	StoreURL  string // postgres/mysql connection string

	// Invite links
	AppBaseURL        string
	InviteTokenSecret string
	InviteTokenTTL    time.Duration

	// Amazon SES
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first when
// present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerPort:        getEnv("PORT", "8080"),
		StoreType:         getEnv("STORE_TYPE", "sqlite"),
		StorePath:         getEnv("STORE_PATH", "./familytime.db"),
		StoreURL:          getEnv("STORE_URL", ""),
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
		InviteTokenSecret: getEnv("INVITE_TOKEN_SECRET", ""),
		InviteTokenTTL:    getDuration("INVITE_TOKEN_TTL", 7*24*time.Hour),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "FamilyTime"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration environment variable or returns a default
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s %q, using default", key, value)
		return defaultValue
	}
	return parsed
}
