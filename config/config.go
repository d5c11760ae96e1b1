package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	ServerPort     string
	AllowedOrigins string
	CookieDomain   string
	Environment    string

	MinioAccessKey string
	MinioSecretKey string
	MinioEndpoint  string
	MinioUseSSL    bool

	SessionSecret   string
	SessionDuration int // hours
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load() // Ignore error since file might not exist in production

	// Get environment with default
	env := getEnvWithDefault("ENVIRONMENT", "development")
	env = strings.ToLower(env) // Normalize environment string

	// Validate environment value
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[env] {
		return nil, fmt.Errorf("invalid environment value: %s", env)
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	sessionDuration, err := strconv.Atoi(getEnvWithDefault("SESSION_DURATION", "12"))
	if err != nil || sessionDuration <= 0 {
		return nil, fmt.Errorf("invalid SESSION_DURATION value")
	}

	// Initialize config with environment variables
	config := &Config{
		Environment: env,

		AllowedOrigins:  getEnvWithDefault("ALLOWED_ORIGINS", "*"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MongoDBURL:      os.Getenv("MONGODB_URL"),
		MongoDBName:     getEnvWithDefault("MONGODB_NAME", "mcho"),
		ServerPort:      getEnvWithDefault("SERVER_PORT", "8080"),
		CookieDomain:    getEnvWithDefault("COOKIE_DOMAIN", ""),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioUseSSL:     getEnvWithDefault("MINIO_USE_SSL", "true") == "true",
		SessionSecret:   sessionSecret,
		SessionDuration: sessionDuration,
	}

	return config, nil
}

// IsDevelopment returns whether the current environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns whether the current environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsStaging returns whether the current environment is staging
func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}
