// Package mock provides an in-memory record store for testing.
package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/mem"
)

// MockStore implements mem.RecordStore entirely in memory with configurable
// failure injection and call recording.
type MockStore struct {
	// records holds inserted records in insertion order
	records []mem.MemoryRecord

	// nextSeq is the insertion sequence counter
	nextSeq uint64

	// dimension is fixed by the first insert, or preset via option
	dimension int

	// name identifies the collection
	name string

	// shouldError indicates if store operations should return errors
	shouldError bool

	// mutex protects state from concurrent access
	mutex sync.RWMutex

	// callHistory records operation names in order
	callHistory []string
}

// MockOption is a function that configures a MockStore.
type MockOption func(*MockStore)

// WithDimension presets the fixed embedding dimension.
func WithDimension(d int) MockOption {
	return func(m *MockStore) {
		m.dimension = d
	}
}

// WithName sets the collection identifier.
func WithName(name string) MockOption {
	return func(m *MockStore) {
		m.name = name
	}
}

// WithShouldError configures whether the mock returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockStore) {
		m.shouldError = shouldErr
	}
}

// NewMockStore creates a new MockStore with the given options.
func NewMockStore(opts ...MockOption) *MockStore {
	m := &MockStore{
		name:        "mock",
		callHistory: make([]string, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Insert implements mem.RecordStore.
func (m *MockStore) Insert(ctx context.Context, record mem.MemoryRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "Insert")

	if m.shouldError {
		return errors.ErrStoreUnavailable
	}
	if m.dimension == 0 {
		m.dimension = len(record.Embedding)
	} else if len(record.Embedding) != m.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"expected %d dimensions, got %d", m.dimension, len(record.Embedding))
	}

	m.nextSeq++
	record.Seq = m.nextSeq
	m.records = append(m.records, record)
	return nil
}

// NearestNeighbors implements mem.RecordStore with exhaustive cosine scan.
func (m *MockStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter mem.Filter) ([]mem.SearchHit, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "NearestNeighbors")

	if m.shouldError {
		return nil, errors.ErrStoreUnavailable
	}
	if k <= 0 {
		return []mem.SearchHit{}, nil
	}

	var hits []mem.SearchHit
	for _, rec := range m.records {
		if len(filter) > 0 && !mem.MatchesFilter(rec.Meta.Flatten(), filter) {
			continue
		}
		hits = append(hits, mem.SearchHit{
			Record:   rec,
			Distance: cosineDistance(vector, rec.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []mem.SearchHit{}
	}
	return hits, nil
}

// ScanAll implements mem.RecordStore.
func (m *MockStore) ScanAll(ctx context.Context, filter mem.Filter) ([]mem.MemoryRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "ScanAll")

	if m.shouldError {
		return nil, errors.ErrStoreUnavailable
	}

	var out []mem.MemoryRecord
	for _, rec := range m.records {
		if len(filter) > 0 && !mem.MatchesFilter(rec.Meta.Flatten(), filter) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteAll implements mem.RecordStore.
func (m *MockStore) DeleteAll(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "DeleteAll")

	if m.shouldError {
		return errors.ErrStoreUnavailable
	}
	m.records = nil
	return nil
}

// Count implements mem.RecordStore.
func (m *MockStore) Count(ctx context.Context) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "Count")

	if m.shouldError {
		return 0, errors.ErrStoreUnavailable
	}
	return len(m.records), nil
}

// Stats implements mem.RecordStore.
func (m *MockStore) Stats(ctx context.Context) (mem.StoreStats, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callHistory = append(m.callHistory, "Stats")

	if m.shouldError {
		return mem.StoreStats{}, errors.ErrStoreUnavailable
	}
	return mem.StoreStats{Count: len(m.records), Name: m.name}, nil
}

// Close implements mem.RecordStore.
func (m *MockStore) Close() error {
	return nil
}

// CallCount returns how many operations have been recorded.
func (m *MockStore) CallCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.callHistory)
}

// Calls returns a copy of the recorded operation names in order.
func (m *MockStore) Calls() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	calls := make([]string, len(m.callHistory))
	copy(calls, m.callHistory)
	return calls
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
