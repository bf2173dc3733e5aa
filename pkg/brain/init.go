package brain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptiq/membrain/pkg/config"
	"github.com/synaptiq/membrain/pkg/embed"
	embedMock "github.com/synaptiq/membrain/pkg/embed/adapters/mock"
	embedOpenAI "github.com/synaptiq/membrain/pkg/embed/adapters/openai"
	"github.com/synaptiq/membrain/pkg/emotion"
	emotionMock "github.com/synaptiq/membrain/pkg/emotion/adapters/mock"
	emotionOpenAI "github.com/synaptiq/membrain/pkg/emotion/adapters/openai"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
	chromemStore "github.com/synaptiq/membrain/pkg/mem/store/chromem"
	memMock "github.com/synaptiq/membrain/pkg/mem/store/mock"
	pgvectorStore "github.com/synaptiq/membrain/pkg/mem/store/pgvector"
	sqliteStore "github.com/synaptiq/membrain/pkg/mem/store/sqlite"
	"github.com/synaptiq/membrain/pkg/nlp"
	nlpMock "github.com/synaptiq/membrain/pkg/nlp/adapters/mock"
	nlpOpenAI "github.com/synaptiq/membrain/pkg/nlp/adapters/openai"
	"github.com/synaptiq/membrain/pkg/query"
)

// NewBrainFromConfig creates a fully wired Brain from a loaded configuration.
// This is a convenience function that handles all component initialization.
func NewBrainFromConfig(cfg *config.Config) (*Brain, error) {
	records, err := initRecordStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}

	embedder, err := initEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	analyzer, err := initAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	classifier, err := initClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	memories, err := mem.NewStore(records, embedder,
		mem.WithAnalyzer(analyzer),
		mem.WithClassifier(classifier),
		mem.WithRelevanceThreshold(cfg.Retrieval.RelevanceThreshold),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	enhancer, err := query.NewEnhancer(analyzer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query enhancer: %w", err)
	}

	brainConfig := DefaultConfig()
	brainConfig.HistoryWindow = cfg.Retrieval.HistoryWindow
	brainConfig.RetrievalLimit = cfg.Retrieval.DefaultLimit

	brain, err := NewBrain(memories, enhancer, brainConfig)
	if err != nil {
		return nil, err
	}

	log.Info("Brain initialized from config",
		"store_type", cfg.Store.Type,
		"embedding_provider", cfg.Embedding.Provider,
		"analysis_provider", cfg.Analysis.Provider,
		"emotion_provider", cfg.Emotion.Provider,
	)

	return brain, nil
}

// initRecordStore initializes the appropriate record store based on configuration.
func initRecordStore(cfg *config.Config) (mem.RecordStore, error) {
	storeType := strings.ToLower(cfg.Store.Type)
	log.Info("Initializing record store", "type", storeType)

	switch storeType {
	case "mock", "":
		return memMock.NewMockStore(memMock.WithName(cfg.Store.Collection)), nil

	case "chromem":
		if err := ensureParentDir(cfg.Store.Chromem.Path); err != nil {
			return nil, err
		}
		return chromemStore.NewChromemStore(chromemStore.Config{
			Path:       cfg.Store.Chromem.Path,
			Collection: cfg.Store.Collection,
		})

	case "sqlite":
		if err := ensureParentDir(cfg.Store.SQLite.Path); err != nil {
			return nil, err
		}
		return sqliteStore.NewSQLiteStore(sqliteStore.Config{
			Path:       cfg.Store.SQLite.Path,
			Collection: cfg.Store.Collection,
		})

	case "postgres":
		return pgvectorStore.NewPgvectorStore(context.Background(), pgvectorStore.Config{
			ConnectionString: cfg.Store.Postgres.DSN,
			Table:            cfg.Store.Collection,
			Dimensions:       embeddingDimensions(cfg),
		})

	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}

// embeddingDimensions resolves the configured embedder's vector width, which
// the pgvector backend needs up front to type its vector column.
func embeddingDimensions(cfg *config.Config) int {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "openai":
		return cfg.Embedding.OpenAI.Dimensions
	case "onnx":
		return cfg.Embedding.ONNX.Dimensions
	default:
		return embedMock.NewMockEmbedder().Dimensions()
	}
}

// initEmbedder initializes the embedding adapter, wrapped in the embedding
// cache when one is configured.
func initEmbedder(cfg *config.Config) (embed.Embedder, error) {
	provider := strings.ToLower(cfg.Embedding.Provider)
	log.Info("Initializing embedder", "provider", provider)

	var embedder embed.Embedder
	switch provider {
	case "openai":
		apiKey := cfg.Embedding.OpenAI.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Warn("OpenAI API key not found, falling back to mock embedder")
			embedder = embedMock.NewMockEmbedder()
			break
		}
		adapter, err := embedOpenAI.NewOpenAIEmbedder(embedOpenAI.Config{
			APIKey:     apiKey,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: cfg.Embedding.OpenAI.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		embedder = adapter

	case "onnx":
		adapter, err := newONNXEmbedder(cfg.Embedding.ONNX)
		if err != nil {
			return nil, err
		}
		embedder = adapter

	case "mock", "":
		embedder = embedMock.NewMockEmbedder()

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}

	if cfg.Embedding.CacheSize > 0 {
		cached, err := embed.NewCached(embedder, embed.CacheConfig{
			MaxEntries: cfg.Embedding.CacheSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
		}
		return cached, nil
	}

	return embedder, nil
}

// initAnalyzer initializes the entity/keyword extraction adapter.
func initAnalyzer(cfg *config.Config) (nlp.Analyzer, error) {
	provider := strings.ToLower(cfg.Analysis.Provider)
	log.Info("Initializing analyzer", "provider", provider)

	switch provider {
	case "openai":
		apiKey := cfg.Analysis.OpenAI.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Warn("OpenAI API key not found, falling back to mock analyzer")
			return nlpMock.NewMockAnalyzer(), nil
		}
		return nlpOpenAI.NewOpenAIAnalyzer(nlpOpenAI.Config{
			APIKey: apiKey,
			Model:  cfg.Analysis.OpenAI.Model,
		})

	case "mock", "":
		return nlpMock.NewMockAnalyzer(), nil

	default:
		return nil, fmt.Errorf("unsupported analysis provider: %s", provider)
	}
}

// initClassifier initializes the emotion classification adapter.
func initClassifier(cfg *config.Config) (emotion.Classifier, error) {
	provider := strings.ToLower(cfg.Emotion.Provider)
	log.Info("Initializing emotion classifier", "provider", provider)

	switch provider {
	case "openai":
		apiKey := cfg.Emotion.OpenAI.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Warn("OpenAI API key not found, falling back to mock classifier")
			return emotionMock.NewMockClassifier(), nil
		}
		return emotionOpenAI.NewOpenAIClassifier(emotionOpenAI.Config{
			APIKey: apiKey,
			Model:  cfg.Emotion.OpenAI.Model,
		})

	case "mock", "":
		return emotionMock.NewMockClassifier(), nil

	default:
		return nil, fmt.Errorf("unsupported emotion provider: %s", provider)
	}
}

func ensureParentDir(path string) error {
	if path == "" {
		return fmt.Errorf("store path not provided")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}
