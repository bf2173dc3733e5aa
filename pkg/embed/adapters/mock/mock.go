package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"
)

// MockEmbedder implements the embed.Embedder interface with canned vectors.
type MockEmbedder struct {
	// cannedVectors maps exact input text to predetermined vectors
	cannedVectors map[string][]float32

	// dimensions is the fixed vector size
	dimensions int

	// shouldError indicates if the embedder should return errors
	shouldError bool

	// mutex protects the maps and call history from concurrent access
	mutex sync.RWMutex

	// callHistory records every Embed input
	callHistory []string
}

// MockOption is a function that configures a MockEmbedder.
type MockOption func(*MockEmbedder)

// WithDimensions sets the vector size produced by the mock.
func WithDimensions(d int) MockOption {
	return func(m *MockEmbedder) {
		m.dimensions = d
	}
}

// WithCannedVector registers a fixed vector for an exact input text.
func WithCannedVector(text string, vector []float32) MockOption {
	return func(m *MockEmbedder) {
		m.cannedVectors[text] = vector
	}
}

// WithShouldError configures whether the mock returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockEmbedder) {
		m.shouldError = shouldErr
	}
}

// NewMockEmbedder creates a new MockEmbedder with the given options.
func NewMockEmbedder(opts ...MockOption) *MockEmbedder {
	m := &MockEmbedder{
		cannedVectors: make(map[string][]float32),
		dimensions:    8,
		shouldError:   false,
		callHistory:   make([]string, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Embed implements the embed.Embedder interface. Inputs without a canned
// vector get a deterministic hash-derived unit vector, so identical text
// always embeds identically.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = append(m.callHistory, text)

	if m.shouldError {
		return nil, errors.New("mock embedder error")
	}

	if vector, ok := m.cannedVectors[text]; ok {
		return vector, nil
	}

	return m.deterministicVector(text), nil
}

// Dimensions implements the embed.Embedder interface.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// CallCount returns how many times Embed has been called.
func (m *MockEmbedder) CallCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.callHistory)
}

// Calls returns a copy of all Embed inputs in order.
func (m *MockEmbedder) Calls() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	calls := make([]string, len(m.callHistory))
	copy(calls, m.callHistory)
	return calls
}

// deterministicVector derives a unit vector from a hash of the text.
func (m *MockEmbedder) deterministicVector(text string) []float32 {
	vector := make([]float32, m.dimensions)

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	var norm float64
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>16)%1000) / 1000.0
		vector[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vector {
			vector[i] /= n
		}
	}

	return vector
}
