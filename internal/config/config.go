package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ragchat/internal/logger"

	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// OllamaConfig holds the inference server configuration
type OllamaConfig struct {
	BaseURL      string
	DefaultModel string
}

// AuthConfig holds session configuration
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
}

// StorageConfig holds flat-file persistence configuration
type StorageConfig struct {
	DataDir string
}

// RetrievalConfig holds retrieval-augmentation configuration
type RetrievalConfig struct {
	// TopK is how many ranked documents feed the generation prompt
	TopK int
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	config.Ollama = OllamaConfig{
		BaseURL:      getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		DefaultModel: getEnvOrDefault("OLLAMA_MODEL", "llama3:latest"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}

	config.Auth = AuthConfig{
		JWTSecret:       []byte(jwtSecret),
		TokenExpiration: getEnvAsDuration("SESSION_EXPIRATION", 24*time.Hour),
	}

	config.Storage = StorageConfig{
		DataDir: getEnvOrDefault("DATA_DIR", "./data"),
	}

	config.Retrieval = RetrievalConfig{
		TopK: getEnvAsInt("RAG_TOP_K", 3),
	}

	return config, nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
