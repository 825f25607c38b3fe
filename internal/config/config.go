package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerPort         string
	CORSAllowedOrigins []string

	// Store settings
	StoreBackend    string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// OpenTelemetry settings
	TelemetryEnabled bool
	OTLPEndpoint     string
	ServiceName      string
	Environment      string
}

// Load returns configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:         getEnv("PORT", "3001"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "todo-app"),
		MongoCollection:    getEnv("MONGODB_COLLECTION", "todos"),
		TelemetryEnabled:   getEnvBool("TELEMETRY_ENABLED", true),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:        getEnv("OTEL_SERVICE_NAME", "todo-service"),
		Environment:        getEnv("ENVIRONMENT", "development"),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the %s backend", BackendMongo)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
