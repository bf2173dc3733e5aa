package embed

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
)

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	// MaxEntries is the approximate maximum number of cached vectors.
	MaxEntries int64 `yaml:"max_entries"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 4096,
	}
}

// Cached wraps an Embedder with a ristretto cache. The embedding contract
// guarantees identical input yields identical output, so cached vectors never
// go stale.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCached creates a caching wrapper around inner.
func NewCached(inner Embedder, cfg CacheConfig) (*Cached, error) {
	if inner == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "nil embedder")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding cache")
	}

	log.Debug("Embedding cache initialized", "max_entries", cfg.MaxEntries)

	return &Cached{
		inner: inner,
		cache: cache,
	}, nil
}

// Embed implements the Embedder interface.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		if vector, ok := cached.([]float32); ok {
			return vector, nil
		}
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// Cost 1 per entry; MaxCost is an entry budget, not bytes.
	c.cache.Set(text, vector, 1)

	return vector, nil
}

// Dimensions implements the Embedder interface.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Wait blocks until pending cache writes are applied. Only useful in tests.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close releases cache resources.
func (c *Cached) Close() {
	c.cache.Close()
}
