// Package pgvector implements the record store on PostgreSQL with the
// pgvector extension. Nearest-neighbor queries run inside the database using
// the cosine distance operator, so this backend scales past the in-memory and
// single-file options.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "memory_records"

// DefaultDimensions matches the OpenAI text-embedding-3-small width.
const DefaultDimensions = 1536

// Config holds the configuration for the pgvector record store.
type Config struct {
	// ConnectionString is the PostgreSQL connection string.
	ConnectionString string

	// Table is the table name; defaults to DefaultTable.
	Table string

	// Dimensions is the embedding width; the vector column is typed with it,
	// so it must match the configured embedder. Defaults to DefaultDimensions.
	Dimensions int
}

// PgvectorStore implements mem.RecordStore over a pgxpool connection.
type PgvectorStore struct {
	db        *pgxpool.Pool
	table     string
	dimension int
	location  string
}

// NewPgvectorStore connects to PostgreSQL, ensures the vector extension and
// the record table exist, and returns the store.
func NewPgvectorStore(ctx context.Context, config Config) (*PgvectorStore, error) {
	if config.ConnectionString == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "connection string cannot be empty")
	}
	if config.Table == "" {
		config.Table = DefaultTable
	}
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultDimensions
	}

	db, err := pgxpool.New(ctx, config.ConnectionString)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "connecting to postgres: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "pinging postgres: %v", err)
	}

	s := &PgvectorStore{
		db:        db,
		table:     config.Table,
		dimension: config.Dimensions,
		location:  db.Config().ConnConfig.Host,
	}

	if err := s.initializeTable(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened pgvector record store",
		"table", s.table,
		"dimension", s.dimension)

	return s, nil
}

// initializeTable creates the vector extension, the record table and the
// cosine index if they do not exist.
func (s *PgvectorStore) initializeTable(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "creating vector extension: %v", err)
	}

	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq       BIGSERIAL PRIMARY KEY,
			id        TEXT UNIQUE NOT NULL,
			content   TEXT NOT NULL,
			metadata  JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL
		)
	`, s.table, s.dimension))
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "creating table: %v", err)
	}

	indexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_type_idx ON %s ((metadata->>'type'))", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)", s.table, s.table),
	}
	for _, stmt := range indexes {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return errors.Wrap(errors.ErrStoreUnavailable, "creating index: %v", err)
		}
	}

	return nil
}

// Insert implements mem.RecordStore.
func (s *PgvectorStore) Insert(ctx context.Context, record mem.MemoryRecord) error {
	if record.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "record ID cannot be empty")
	}
	if len(record.Embedding) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "record embedding cannot be empty")
	}
	if len(record.Embedding) != s.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"expected %d dimensions, got %d", s.dimension, len(record.Embedding))
	}

	metadataJSON, err := json.Marshal(record.Meta.Flatten())
	if err != nil {
		return errors.Wrap(err, "marshaling metadata")
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
	`, s.table),
		record.ID, record.Content, metadataJSON, vectorLiteral(record.Embedding))
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "inserting record: %v", err)
	}

	return nil
}

// NearestNeighbors implements mem.RecordStore. Ordering and distance both use
// the cosine distance operator inside the database.
func (s *PgvectorStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter mem.Filter) ([]mem.SearchHit, error) {
	if k <= 0 {
		return []mem.SearchHit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.Wrap(errors.ErrDimensionMismatch,
			"expected %d dimensions, got %d", s.dimension, len(vector))
	}

	where, args := buildWhere(filter)
	args = append(args, vectorLiteral(vector))
	vectorParam := len(args)

	query := fmt.Sprintf(`
		SELECT seq, id, content, metadata, embedding <=> $%d::vector AS distance
		FROM %s
		WHERE %s
		ORDER BY distance
		LIMIT %d
	`, vectorParam, s.table, where, k)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "querying neighbors: %v", err)
	}
	defer rows.Close()

	hits := make([]mem.SearchHit, 0, k)
	for rows.Next() {
		var (
			row      recordRow
			distance float64
		)
		if err := rows.Scan(&row.Seq, &row.ID, &row.Content, &row.Metadata, &distance); err != nil {
			return nil, errors.Wrap(errors.ErrStoreUnavailable, "scanning neighbor row: %v", err)
		}
		hits = append(hits, mem.SearchHit{
			Record:   row.toRecord(),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "iterating neighbor rows: %v", err)
	}
	return hits, nil
}

// recordRow is the scan layout shared by the read paths. The embedding is not
// fetched: retrieval only needs content, metadata and sequence.
type recordRow struct {
	Seq      uint64
	ID       string
	Content  string
	Metadata map[string]string
}

func (r recordRow) toRecord() mem.MemoryRecord {
	return mem.MemoryRecord{
		ID:      r.ID,
		Content: r.Content,
		Seq:     r.Seq,
		Meta:    mem.ParseFlat(r.Metadata),
	}
}

// ScanAll implements mem.RecordStore.
func (s *PgvectorStore) ScanAll(ctx context.Context, filter mem.Filter) ([]mem.MemoryRecord, error) {
	where, args := buildWhere(filter)

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT seq, id, content, metadata FROM %s WHERE %s
	`, s.table, where), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "scanning records: %v", err)
	}
	defer rows.Close()

	var records []mem.MemoryRecord
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(&row.Seq, &row.ID, &row.Content, &row.Metadata); err != nil {
			return nil, errors.Wrap(errors.ErrStoreUnavailable, "scanning record row: %v", err)
		}
		records = append(records, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "iterating record rows: %v", err)
	}
	return records, nil
}

// DeleteAll implements mem.RecordStore.
func (s *PgvectorStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "clearing records: %v", err)
	}
	log.Info("Cleared record store", "table", s.table)
	return nil
}

// Count implements mem.RecordStore.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStoreUnavailable, "counting records: %v", err)
	}
	return count, nil
}

// Stats implements mem.RecordStore.
func (s *PgvectorStore) Stats(ctx context.Context) (mem.StoreStats, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return mem.StoreStats{}, err
	}
	return mem.StoreStats{
		Count:    count,
		Name:     s.table,
		Location: s.location,
	}, nil
}

// Close implements mem.RecordStore.
func (s *PgvectorStore) Close() error {
	s.db.Close()
	return nil
}

// buildWhere turns a metadata filter into a JSONB WHERE clause. An empty
// filter yields TRUE so callers can always append AND conditions.
func buildWhere(filter mem.Filter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any

	for key, value := range filter {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("metadata->>%s = $%d", quoteLiteral(key), len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// quoteLiteral single-quotes a JSONB key. Filter keys come from the engine's
// fixed metadata vocabulary, never from user input.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// vectorLiteral renders a vector in pgvector's text format.
func vectorLiteral(embedding []float32) string {
	elements := make([]string, len(embedding))
	for i, v := range embedding {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(elements, ",") + "]"
}
