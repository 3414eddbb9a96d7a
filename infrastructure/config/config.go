package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string
	ColdStartTimeout   int // milliseconds

	// Stream (WebSocket) configuration
	StreamEndpoint   string
	ConnectionsTable string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics     bool
	EnableTracing     bool
	EnableCORS        bool
	EnableShadowReads bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "engram-memory")),
		EventBusName:  getEnv("EVENT_BUS_NAME", "engram-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),
		ColdStartTimeout:   getEnvInt("COLD_START_TIMEOUT", 3000),

		// Stream configuration
		StreamEndpoint:   getEnv("STREAM_ENDPOINT", ""),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "engram-connections"),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "engram"),

		// Logging and features
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		EnableMetrics:     getEnvBool("ENABLE_METRICS", false),
		EnableTracing:     getEnvBool("ENABLE_TRACING", false),
		EnableCORS:        getEnvBool("ENABLE_CORS", true),
		EnableShadowReads: getEnvBool("ENABLE_SHADOW_READS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
