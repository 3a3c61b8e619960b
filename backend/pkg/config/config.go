package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

// Storage backends
const (
	BackendMongo  = "mongo"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Topic similarity strategies
const (
	SimilarityLexical  = "lexical"
	SimilaritySemantic = "semantic"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Document store (conversations, quizzes, answers)
	StoreBackend  string
	MongoURI      string
	MongoDatabase string

	// Topic graph
	TopicBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// LLM
	LLMBaseURL     string
	LLMAPIKey      string
	ModelID        string
	LLMMaxAttempts int
	LLMTemperature float64

	// Topic resolution
	TopicSimilarity          string
	TopicSimilarityThreshold float64
	TopicMatchConcurrency    int

	// Orchestration
	MaxToolRounds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		Env:                      getEnv("ENV", "development"),
		StoreBackend:             strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		MongoURI:                 getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:            getEnv("MONGODB_DATABASE", "neurogym"),
		TopicBackend:             strings.ToLower(getEnv("TOPIC_BACKEND", BackendNeo4j)),
		Neo4jURI:                 getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:                getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:            getEnv("NEO4J_PASSWORD", "password"),
		LLMBaseURL:               getEnv("LLM_BASE_URL", "http://localhost:4000/v1"),
		LLMAPIKey:                getEnv("LLM_API_KEY", ""),
		ModelID:                  getEnv("MODEL_ID", "command-a-03-2025"),
		LLMMaxAttempts:           getEnvInt("LLM_MAX_ATTEMPTS", 1),
		LLMTemperature:           getEnvFloat("LLM_TEMPERATURE", 0.3),
		TopicSimilarity:          strings.ToLower(getEnv("TOPIC_SIMILARITY", SimilarityLexical)),
		TopicSimilarityThreshold: getEnvFloat("TOPIC_SIMILARITY_THRESHOLD", 0.8),
		TopicMatchConcurrency:    getEnvInt("TOPIC_MATCH_CONCURRENCY", 1),
		MaxToolRounds:            getEnvInt("MAX_TOOL_ROUNDS", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return apperrors.NewConfigMissingRequired("MONGODB_URI")
		}
		if c.MongoDatabase == "" {
			return apperrors.NewConfigMissingRequired("MONGODB_DATABASE")
		}
	case BackendMemory:
	default:
		return apperrors.NewConfigInvalid("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}

	switch c.TopicBackend {
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
	case BackendMemory:
	default:
		return apperrors.NewConfigInvalid("TOPIC_BACKEND", fmt.Sprintf("unknown backend %q", c.TopicBackend))
	}

	if c.LLMBaseURL == "" {
		return apperrors.NewConfigMissingRequired("LLM_BASE_URL")
	}
	if c.ModelID == "" {
		return apperrors.NewConfigMissingRequired("MODEL_ID")
	}
	if c.LLMMaxAttempts < 1 {
		return apperrors.NewConfigInvalid("LLM_MAX_ATTEMPTS", "must be at least 1")
	}

	switch c.TopicSimilarity {
	case SimilarityLexical, SimilaritySemantic:
	default:
		return apperrors.NewConfigInvalid("TOPIC_SIMILARITY", fmt.Sprintf("unknown strategy %q", c.TopicSimilarity))
	}
	if c.TopicSimilarityThreshold <= 0 || c.TopicSimilarityThreshold > 1 {
		return apperrors.NewConfigInvalid("TOPIC_SIMILARITY_THRESHOLD", "must be in (0, 1]")
	}
	if c.TopicMatchConcurrency < 1 {
		return apperrors.NewConfigInvalid("TOPIC_MATCH_CONCURRENCY", "must be at least 1")
	}
	if c.MaxToolRounds < 1 {
		return apperrors.NewConfigInvalid("MAX_TOOL_ROUNDS", "must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
