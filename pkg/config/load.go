package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration that works without a config file: a mock
// embedding/analysis stack over an in-memory store. Environment overrides
// still apply, so the result is validated like any loaded config.
func Default() (*Config, error) {
	config := &Config{
		Store:     StoreConfig{Type: "mock", Collection: "memories"},
		Embedding: EmbeddingConfig{Provider: "mock"},
		Analysis:  AnalysisConfig{Provider: "mock"},
		Emotion:   EmotionConfig{Provider: "mock"},
	}
	applyEnvironmentOverrides(config)
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Store overrides
	if storeType := os.Getenv("MEMBRAIN_STORE_TYPE"); storeType != "" {
		config.Store.Type = storeType
	}
	if path := os.Getenv("MEMBRAIN_STORE_PATH"); path != "" {
		config.Store.Chromem.Path = path
		config.Store.SQLite.Path = path
	}
	if collection := os.Getenv("MEMBRAIN_COLLECTION"); collection != "" {
		config.Store.Collection = collection
	}
	if dsn := os.Getenv("MEMBRAIN_POSTGRES_DSN"); dsn != "" {
		config.Store.Postgres.DSN = dsn
	}

	// OpenAI API key override, shared by every OpenAI-backed adapter
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.OpenAI.APIKey = apiKey
		config.Analysis.OpenAI.APIKey = apiKey
		config.Emotion.OpenAI.APIKey = apiKey
	}

	// Logging override
	if level := os.Getenv("MEMBRAIN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// validateConfig validates the configuration and applies defaults.
func validateConfig(config *Config) error {
	// Validate store configuration
	if config.Store.Collection == "" {
		config.Store.Collection = "memories"
	}
	switch strings.ToLower(config.Store.Type) {
	case "chromem":
		if config.Store.Chromem.Path == "" {
			return fmt.Errorf("store path is required for chromem store type")
		}
	case "sqlite":
		if config.Store.SQLite.Path == "" {
			return fmt.Errorf("store path is required for sqlite store type")
		}
	case "postgres":
		if config.Store.Postgres.DSN == "" {
			return fmt.Errorf("dsn is required for postgres store type")
		}
	case "mock":
		// Mock store doesn't require additional validation
	default:
		return fmt.Errorf("unsupported store type: %s", config.Store.Type)
	}

	// Validate embedding configuration
	switch strings.ToLower(config.Embedding.Provider) {
	case "openai":
		if config.Embedding.OpenAI.Model == "" {
			config.Embedding.OpenAI.Model = "text-embedding-3-small"
		}
		if config.Embedding.OpenAI.Dimensions <= 0 {
			config.Embedding.OpenAI.Dimensions = 1536
		}
	case "onnx":
		if config.Embedding.ONNX.ModelPath == "" {
			return fmt.Errorf("model path is required for onnx embedding provider")
		}
		if config.Embedding.ONNX.TokenizerPath == "" {
			return fmt.Errorf("tokenizer path is required for onnx embedding provider")
		}
		if config.Embedding.ONNX.Dimensions <= 0 {
			config.Embedding.ONNX.Dimensions = 384
		}
	case "mock":
		// Mock embedder doesn't require additional validation
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}
	if config.Embedding.CacheSize < 0 {
		config.Embedding.CacheSize = 0
	}

	// Validate analysis configuration
	switch strings.ToLower(config.Analysis.Provider) {
	case "openai":
		if config.Analysis.OpenAI.Model == "" {
			config.Analysis.OpenAI.Model = "gpt-4o-mini"
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported analysis provider: %s", config.Analysis.Provider)
	}

	// Validate emotion configuration
	switch strings.ToLower(config.Emotion.Provider) {
	case "openai":
		if config.Emotion.OpenAI.Model == "" {
			config.Emotion.OpenAI.Model = "gpt-4o-mini"
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported emotion provider: %s", config.Emotion.Provider)
	}

	// Apply retrieval defaults
	if config.Retrieval.RelevanceThreshold <= 0 || config.Retrieval.RelevanceThreshold >= 1 {
		config.Retrieval.RelevanceThreshold = 0.3
	}
	if config.Retrieval.DefaultLimit <= 0 {
		config.Retrieval.DefaultLimit = 5
	}
	if config.Retrieval.HistoryWindow <= 0 {
		config.Retrieval.HistoryWindow = 10
	}

	return nil
}
