package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DatabasePath     string
	ServerPort       string
	BaseURL          string
	DirectoryURL     string
	MongoURL         string
	MongoDatabase    string
	OpenAIKey        string
	AIModel          string
	AIBaseURL        string
	JWKSURL          string
	JWTIssuer        string
	AllowedOrigins   string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	SyncInterval     string
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DATABASE_PATH", "botforge.db")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("MONGO_DATABASE", "botforge")
	v.SetDefault("AI_MODEL", "")
	v.SetDefault("AI_BASE_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("RABBITMQ_PREFETCH", 1)
	v.SetDefault("SYNC_INTERVAL", "15m")
	v.SetDefault("WORKER_DEBUG_MODE", false)
	v.SetDefault("SERVER_DEBUG_MODE", false)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := &Config{
		DatabasePath:     v.GetString("DATABASE_PATH"),
		ServerPort:       v.GetString("SERVER_PORT"),
		BaseURL:          v.GetString("BASE_URL"),
		DirectoryURL:     v.GetString("DIRECTORY_URL"),
		MongoURL:         v.GetString("MONGO_URL"),
		MongoDatabase:    v.GetString("MONGO_DATABASE"),
		OpenAIKey:        v.GetString("OPENAI_API_KEY"),
		AIModel:          v.GetString("AI_MODEL"),
		AIBaseURL:        v.GetString("AI_BASE_URL"),
		JWKSURL:          v.GetString("JWKS_URL"),
		JWTIssuer:        v.GetString("JWT_ISSUER"),
		AllowedOrigins:   v.GetString("ALLOWED_ORIGINS"),
		RedisURL:         v.GetString("REDIS_URL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQPrefetch: v.GetInt("RABBITMQ_PREFETCH"),
		SyncInterval:     v.GetString("SYNC_INTERVAL"),
		WorkerDebugMode:  v.GetBool("WORKER_DEBUG_MODE"),
		ServerDebugMode:  v.GetBool("SERVER_DEBUG_MODE"),
		OTELEnabled:      v.GetBool("OTEL_ENABLED"),
		OTELEndpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DirectoryURL == "" {
		return nil, fmt.Errorf("DIRECTORY_URL is required (postgres connection string for the community directory)")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (sync and image generation run as jobs)")
	}

	return cfg, nil
}
