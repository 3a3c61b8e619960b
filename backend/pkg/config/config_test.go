package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Tchaikovic/NeuroGym/backend/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		Port:                     "8080",
		Env:                      "development",
		StoreBackend:             BackendMemory,
		TopicBackend:             BackendMemory,
		LLMBaseURL:               "http://localhost:4000/v1",
		ModelID:                  "test-model",
		LLMMaxAttempts:           1,
		TopicSimilarity:          SimilarityLexical,
		TopicSimilarityThreshold: 0.8,
		TopicMatchConcurrency:    1,
		MaxToolRounds:            1,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TOPIC_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, SimilarityLexical, cfg.TopicSimilarity)
	assert.Equal(t, 0.8, cfg.TopicSimilarityThreshold)
	assert.Equal(t, 1, cfg.MaxToolRounds)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TOPIC_BACKEND", "memory")
	t.Setenv("TOPIC_SIMILARITY", "SEMANTIC")
	t.Setenv("MAX_TOOL_ROUNDS", "3")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SimilaritySemantic, cfg.TopicSimilarity)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"unknown store", func(c *Config) { c.StoreBackend = "redis" }, "STORE_BACKEND"},
		{"missing mongo uri", func(c *Config) { c.StoreBackend = BackendMongo; c.MongoDatabase = "db" }, "MONGODB_URI"},
		{"unknown topic backend", func(c *Config) { c.TopicBackend = "sql" }, "TOPIC_BACKEND"},
		{"missing neo4j uri", func(c *Config) { c.TopicBackend = BackendNeo4j }, "NEO4J_URI"},
		{"missing model", func(c *Config) { c.ModelID = "" }, "MODEL_ID"},
		{"bad strategy", func(c *Config) { c.TopicSimilarity = "fuzzy" }, "TOPIC_SIMILARITY"},
		{"bad threshold", func(c *Config) { c.TopicSimilarityThreshold = 1.5 }, "TOPIC_SIMILARITY_THRESHOLD"},
		{"zero rounds", func(c *Config) { c.MaxToolRounds = 0 }, "MAX_TOOL_ROUNDS"},
		{"zero attempts", func(c *Config) { c.LLMMaxAttempts = 0 }, "LLM_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	assert.NoError(t, validConfig().Validate())
}
