package config

// Config represents the top-level configuration for the membrain engine.
type Config struct {
	// Store configures the memory record store
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding adapter
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Analysis configures the entity/keyword extraction adapter
	Analysis AnalysisConfig `yaml:"analysis"`

	// Emotion configures the emotion classification adapter
	Emotion EmotionConfig `yaml:"emotion"`

	// Retrieval configures hybrid retrieval behavior
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the memory record store.
type StoreConfig struct {
	// Type specifies the store backend ("chromem", "sqlite", "postgres",
	// "mock")
	Type string `yaml:"type"`

	// Collection is the collection name to use
	Collection string `yaml:"collection"`

	// Chromem configures the chromem-go backed store
	Chromem ChromemConfig `yaml:"chromem"`

	// SQLite configures the SQLite backed store
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the pgvector backed store
	Postgres PostgresConfig `yaml:"postgres"`
}

// ChromemConfig configures the chromem-go backed store.
type ChromemConfig struct {
	// Path is the file path of the durable record log
	Path string `yaml:"path"`
}

// SQLiteConfig configures the SQLite backed store.
type SQLiteConfig struct {
	// Path is the database file path
	Path string `yaml:"path"`
}

// PostgresConfig configures the pgvector backed store.
type PostgresConfig struct {
	// DSN is the PostgreSQL connection string
	DSN string `yaml:"dsn"`
}

// EmbeddingConfig configures the embedding adapter.
type EmbeddingConfig struct {
	// Provider is the embedding provider ("openai", "onnx", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI embeddings
	OpenAI OpenAIEmbeddingConfig `yaml:"openai"`

	// ONNX configures local ONNX embeddings
	ONNX ONNXConfig `yaml:"onnx"`

	// CacheSize is the maximum number of cached embeddings (0 disables
	// the cache)
	CacheSize int64 `yaml:"cache_size"`
}

// OpenAIEmbeddingConfig configures OpenAI embeddings.
type OpenAIEmbeddingConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the embedding model to use
	Model string `yaml:"model"`

	// Dimensions is the embedding width
	Dimensions int `yaml:"dimensions"`
}

// ONNXConfig configures local ONNX embeddings.
type ONNXConfig struct {
	// ModelPath is the path to the ONNX model file
	ModelPath string `yaml:"model_path"`

	// TokenizerPath is the path to the tokenizer.json vocabulary
	TokenizerPath string `yaml:"tokenizer_path"`

	// SharedLibraryPath overrides the onnxruntime shared library location
	SharedLibraryPath string `yaml:"shared_library_path"`

	// Dimensions is the embedding width
	Dimensions int `yaml:"dimensions"`
}

// AnalysisConfig configures the entity/keyword extraction adapter.
type AnalysisConfig struct {
	// Provider is the extraction provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI-based extraction
	OpenAI OpenAIChatConfig `yaml:"openai"`
}

// EmotionConfig configures the emotion classification adapter.
type EmotionConfig struct {
	// Provider is the classification provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI-based classification
	OpenAI OpenAIChatConfig `yaml:"openai"`
}

// OpenAIChatConfig configures a chat-model backed adapter.
type OpenAIChatConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the chat model to use
	Model string `yaml:"model"`
}

// RetrievalConfig configures hybrid retrieval behavior.
type RetrievalConfig struct {
	// RelevanceThreshold is the minimum similarity for a returned memory
	RelevanceThreshold float64 `yaml:"relevance_threshold"`

	// DefaultLimit is the default number of memories returned
	DefaultLimit int `yaml:"default_limit"`

	// HistoryWindow is how many recent turns feed the trajectory engine
	HistoryWindow int `yaml:"history_window"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the log output format ("text", "json")
	Format string `yaml:"format"`
}
