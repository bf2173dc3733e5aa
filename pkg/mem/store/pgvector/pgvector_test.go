package pgvector_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/mem"
	"github.com/synaptiq/membrain/pkg/mem/store/pgvector"
)

// newTestStore connects to the database named by PGVECTOR_TEST_URL, skipping
// when none is available. Each test gets its own table.
func newTestStore(t *testing.T) *pgvector.PgvectorStore {
	t.Helper()

	url := os.Getenv("PGVECTOR_TEST_URL")
	if url == "" {
		t.Skip("Skipping pgvector test; PGVECTOR_TEST_URL environment variable not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("membrain_test_%d", time.Now().UnixNano())
	store, err := pgvector.NewPgvectorStore(ctx, pgvector.Config{
		ConnectionString: url,
		Table:            table,
		Dimensions:       2,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.DeleteAll(ctx)
		store.Close()
	})
	return store
}

func testRecord(id, content string, embedding []float32) mem.MemoryRecord {
	return mem.MemoryRecord{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Meta: mem.Metadata{
			Type:      mem.TypeConversation,
			Timestamp: time.Now().UTC(),
			Role:      mem.RoleUser,
		},
	}
}

func TestPgvectorInsertAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord("a", "first", []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testRecord("b", "second", []float32{0, 1})))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPgvectorDimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	err := store.Insert(context.Background(), testRecord("a", "wrong width", []float32{1, 0, 0}))
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestPgvectorNearestNeighborsOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord("far", "unrelated", []float32{0, 1})))
	require.NoError(t, store.Insert(ctx, testRecord("near", "exact match", []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testRecord("mid", "related", []float32{0.6, 0.8})))

	hits, err := store.NearestNeighbors(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "near", hits[0].Record.ID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-4)
	assert.Equal(t, "mid", hits[1].Record.ID)
	assert.InDelta(t, 0.4, hits[1].Distance, 1e-4)
}

func TestPgvectorNearestNeighborsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conversation := testRecord("conv", "a chat turn", []float32{1, 0})
	fact := testRecord("fact", "a stored fact", []float32{1, 0})
	fact.Meta.Type = mem.TypeFact

	require.NoError(t, store.Insert(ctx, conversation))
	require.NoError(t, store.Insert(ctx, fact))

	hits, err := store.NearestNeighbors(ctx, []float32{1, 0}, 10, mem.Filter{"type": mem.TypeFact})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fact", hits[0].Record.ID)
}

func TestPgvectorScanAllAssignsSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord("a", "first", []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testRecord("b", "second", []float32{0, 1})))

	records, err := store.ScanAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	bySeq := map[string]uint64{}
	for _, record := range records {
		bySeq[record.ID] = record.Seq
	}
	assert.Greater(t, bySeq["b"], bySeq["a"])
}

func TestPgvectorDeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord("a", "first", []float32{1, 0})))
	require.NoError(t, store.DeleteAll(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
