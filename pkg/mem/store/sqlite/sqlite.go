// Package sqlite implements the record store on a single-file SQLite
// database. Nearest-neighbor queries brute-force cosine distance over the
// stored vectors, which is adequate for the conversational corpus sizes this
// engine targets.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "memories"

const schema = `
CREATE TABLE IF NOT EXISTS memory_records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT UNIQUE NOT NULL,
	content    TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	metadata   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Config holds the configuration for the SQLite record store.
type Config struct {
	// Path is the database file path.
	Path string

	// Collection is the collection identifier; defaults to DefaultCollection.
	Collection string
}

// SQLiteStore implements mem.RecordStore using a SQLite database via sqlx.
type SQLiteStore struct {
	db   *sqlx.DB
	name string
	path string

	dimension int
}

// recordRow is the sqlx row layout for memory_records.
type recordRow struct {
	Seq       uint64 `db:"seq"`
	ID        string `db:"id"`
	Content   string `db:"content"`
	Embedding string `db:"embedding"`
	Metadata  string `db:"metadata"`
}

// NewSQLiteStore opens (or creates) the store at the configured path and
// ensures the schema exists.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "store path cannot be empty")
	}
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}

	db, err := sqlx.Open("sqlite3", config.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "opening database %s: %v", config.Path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "creating schema: %v", err)
	}

	s := &SQLiteStore{
		db:   db,
		name: config.Collection,
		path: config.Path,
	}

	var stored string
	err = db.Get(&stored, `SELECT value FROM store_meta WHERE key = 'dimension'`)
	if err == nil {
		s.dimension, _ = strconv.Atoi(stored)
	} else if err != sql.ErrNoRows {
		db.Close()
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "reading store dimension: %v", err)
	}

	log.Debug("Opened sqlite record store",
		"path", s.path,
		"collection", s.name,
		"dimension", s.dimension)

	return s, nil
}

// Insert implements mem.RecordStore.
func (s *SQLiteStore) Insert(ctx context.Context, record mem.MemoryRecord) error {
	if record.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "record ID cannot be empty")
	}
	if len(record.Embedding) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "record embedding cannot be empty")
	}

	if s.dimension == 0 {
		s.dimension = len(record.Embedding)
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO store_meta (key, value) VALUES ('dimension', ?)`,
			strconv.Itoa(s.dimension))
		if err != nil {
			return errors.Wrap(errors.ErrStoreUnavailable, "persisting dimension: %v", err)
		}
	} else if len(record.Embedding) != s.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"expected %d dimensions, got %d", s.dimension, len(record.Embedding))
	}

	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return errors.Wrap(err, "marshaling embedding")
	}
	metadataJSON, err := json.Marshal(record.Meta.Flatten())
	if err != nil {
		return errors.Wrap(err, "marshaling metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_records (id, content, embedding, metadata) VALUES (?, ?, ?, ?)`,
		record.ID, record.Content, string(embeddingJSON), string(metadataJSON))
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "inserting record: %v", err)
	}

	return nil
}

// NearestNeighbors implements mem.RecordStore with an exhaustive cosine scan.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter mem.Filter) ([]mem.SearchHit, error) {
	if k <= 0 {
		return []mem.SearchHit{}, nil
	}

	records, err := s.ScanAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]mem.SearchHit, 0, len(records))
	for _, record := range records {
		hits = append(hits, mem.SearchHit{
			Record:   record,
			Distance: cosineDistance(vector, record.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ScanAll implements mem.RecordStore.
func (s *SQLiteStore) ScanAll(ctx context.Context, filter mem.Filter) ([]mem.MemoryRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT seq, id, content, embedding, metadata FROM memory_records`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "scanning records: %v", err)
	}

	var records []mem.MemoryRecord
	for _, row := range rows {
		var flat map[string]string
		if err := json.Unmarshal([]byte(row.Metadata), &flat); err != nil {
			log.Warn("Skipping record with unreadable metadata", "id", row.ID, "error", err)
			continue
		}
		if len(filter) > 0 && !mem.MatchesFilter(flat, filter) {
			continue
		}

		var embedding []float32
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			log.Warn("Skipping record with unreadable embedding", "id", row.ID, "error", err)
			continue
		}

		records = append(records, mem.MemoryRecord{
			ID:        row.ID,
			Content:   row.Content,
			Embedding: embedding,
			Seq:       row.Seq,
			Meta:      mem.ParseFlat(flat),
		})
	}
	return records, nil
}

// DeleteAll implements mem.RecordStore. The fixed dimension is preserved.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_records`); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "clearing records: %v", err)
	}
	log.Info("Cleared record store", "collection", s.name)
	return nil
}

// Count implements mem.RecordStore.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memory_records`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStoreUnavailable, "counting records: %v", err)
	}
	return count, nil
}

// Stats implements mem.RecordStore.
func (s *SQLiteStore) Stats(ctx context.Context) (mem.StoreStats, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return mem.StoreStats{}, err
	}
	return mem.StoreStats{
		Count:    count,
		Name:     s.name,
		Location: s.path,
	}, nil
}

// Close implements mem.RecordStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// cosineDistance returns 1 - cosine similarity. Mismatched or zero vectors
// land at maximum distance rather than erroring.
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
