package mem

import (
	"context"
)

// Filter is an exact-equality metadata filter applied against flattened
// metadata keys.
type Filter map[string]string

// SearchHit is one nearest-neighbor result.
type SearchHit struct {
	Record MemoryRecord

	// Distance is the cosine distance to the query vector (0 identical,
	// 2 opposite).
	Distance float64
}

// StoreStats describes a record store.
type StoreStats struct {
	// Count is the number of stored records.
	Count int

	// Name is the collection identifier.
	Name string

	// Location is the filesystem (or equivalent) persistence location. Empty
	// for purely in-memory stores.
	Location string
}

// RecordStore is the persistence interface for memory records. Backends must
// enforce a fixed embedding dimension, established by the first insert, and
// survive process restart when configured with a persistence location.
type RecordStore interface {
	// Insert stores a record. Returns errors.ErrDimensionMismatch when the
	// embedding does not match the store's fixed dimension.
	Insert(ctx context.Context, record MemoryRecord) error

	// NearestNeighbors returns up to k records ordered by ascending cosine
	// distance to the query vector. A nil filter matches everything. An empty
	// store yields an empty result, not an error.
	NearestNeighbors(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchHit, error)

	// ScanAll returns all records matching the filter, in no particular order.
	ScanAll(ctx context.Context, filter Filter) ([]MemoryRecord, error)

	// DeleteAll irreversibly empties the store. The collection identity is
	// preserved.
	DeleteAll(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Stats describes the store.
	Stats(ctx context.Context) (StoreStats, error)

	// Close releases backend resources.
	Close() error
}

// MatchesFilter reports whether flattened metadata satisfies exact equality on
// every filter key. Shared by store implementations.
func MatchesFilter(flat map[string]string, filter Filter) bool {
	for k, want := range filter {
		if flat[k] != want {
			return false
		}
	}
	return true
}
