// Package chromem implements the record store over a BoltDB record log with
// an in-memory chromem-go collection for nearest-neighbor queries.
//
// chromem-go cannot enumerate documents or answer arbitrary metadata scans,
// so Bolt is the source of truth: every record is appended to the log and
// mirrored into the vector collection, which is rebuilt from the log on open.
package chromem

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"
	bolt "go.etcd.io/bbolt"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
)

var (
	recordsBucket = []byte("records")
	metaBucket    = []byte("meta")
	dimensionKey  = []byte("dimension")
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "memories"

// Config holds the configuration for the chromem-backed record store.
type Config struct {
	// Path is the BoltDB file path.
	Path string

	// Collection is the collection identifier; defaults to DefaultCollection.
	Collection string
}

// ChromemStore implements mem.RecordStore. Durable state lives in Bolt; the
// chromem collection only serves vector queries and is rebuilt on open and
// after DeleteAll.
type ChromemStore struct {
	db         *bolt.DB
	vectors    *chromemgo.DB
	collection *chromemgo.Collection

	name string
	path string

	// mutex serializes insert/clear against the vector collection rebuild.
	mutex sync.RWMutex

	// dimension is the fixed embedding width, 0 until the first insert.
	dimension int
}

// storedRecord is the JSON layout of one record in the Bolt log.
type storedRecord struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding"`
	Seq       uint64            `json:"seq"`
	Metadata  map[string]string `json:"metadata"`
}

// NewChromemStore opens (or creates) the store at the configured path and
// rebuilds the vector collection from the record log.
func NewChromemStore(config Config) (*ChromemStore, error) {
	if config.Path == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "store path cannot be empty")
	}
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}

	db, err := bolt.Open(config.Path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "opening record log %s: %v", config.Path, err)
	}

	s := &ChromemStore{
		db:   db,
		name: config.Collection,
		path: config.Path,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened chromem record store",
		"path", s.path,
		"collection", s.name,
		"dimension", s.dimension)

	return s, nil
}

// initialize creates the Bolt buckets, loads the stored dimension and rebuilds
// the in-memory vector collection from the log.
func (s *ChromemStore) initialize() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if raw := meta.Get(dimensionKey); raw != nil {
			s.dimension = int(binary.BigEndian.Uint32(raw))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "initializing record log: %v", err)
	}

	return s.rebuildVectors()
}

// rebuildVectors replaces the vector collection with one built from the log.
func (s *ChromemStore) rebuildVectors() error {
	s.vectors = chromemgo.NewDB()
	collection, err := s.vectors.CreateCollection(s.name, nil, nil)
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "creating vector collection: %v", err)
	}
	s.collection = collection

	ctx := context.Background()
	loaded := 0
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				log.Warn("Skipping unreadable record in log", "key", string(k), "error", err)
				return nil
			}
			if err := s.collection.AddDocument(ctx, toDocument(stored)); err != nil {
				return err
			}
			loaded++
			return nil
		})
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "rebuilding vector collection: %v", err)
	}

	if loaded > 0 {
		log.Debug("Rebuilt vector collection from record log", "records", loaded)
	}
	return nil
}

func toDocument(stored storedRecord) chromemgo.Document {
	return chromemgo.Document{
		ID:        stored.ID,
		Content:   stored.Content,
		Embedding: stored.Embedding,
		Metadata:  stored.Metadata,
	}
}

// Insert implements mem.RecordStore.
func (s *ChromemStore) Insert(ctx context.Context, record mem.MemoryRecord) error {
	if record.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "record ID cannot be empty")
	}
	if len(record.Embedding) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "record embedding cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.dimension == 0 {
		// First insert fixes the store's dimension.
		s.dimension = len(record.Embedding)
		err := s.db.Update(func(tx *bolt.Tx) error {
			raw := make([]byte, 4)
			binary.BigEndian.PutUint32(raw, uint32(s.dimension))
			return tx.Bucket(metaBucket).Put(dimensionKey, raw)
		})
		if err != nil {
			return errors.Wrap(errors.ErrStoreUnavailable, "persisting dimension: %v", err)
		}
	} else if len(record.Embedding) != s.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"expected %d dimensions, got %d", s.dimension, len(record.Embedding))
	}

	stored := storedRecord{
		ID:        record.ID,
		Content:   record.Content,
		Embedding: record.Embedding,
		Metadata:  record.Meta.Flatten(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		stored.Seq = seq

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(record.ID), data)
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "appending record: %v", err)
	}

	if err := s.collection.AddDocument(ctx, toDocument(stored)); err != nil {
		// The log write succeeded; the collection will converge on next open.
		log.Warn("Failed to index record in vector collection", "id", record.ID, "error", err)
	}

	return nil
}

// NearestNeighbors implements mem.RecordStore. Distance is 1 - similarity as
// reported by chromem's cosine scoring.
func (s *ChromemStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter mem.Filter) ([]mem.SearchHit, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if k <= 0 {
		return []mem.SearchHit{}, nil
	}
	if total := s.collection.Count(); total == 0 {
		return []mem.SearchHit{}, nil
	} else if k > total {
		// chromem rejects nResults larger than the collection.
		k = total
	}

	var where map[string]string
	if len(filter) > 0 {
		where = map[string]string(filter)
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		if isInsufficientDocsError(err) {
			return []mem.SearchHit{}, nil
		}
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "querying vector collection: %v", err)
	}

	hits := make([]mem.SearchHit, 0, len(results))
	for _, result := range results {
		hits = append(hits, mem.SearchHit{
			Record:   s.recordFromLog(result.ID, result),
			Distance: 1 - float64(result.Similarity),
		})
	}
	return hits, nil
}

// recordFromLog resolves a query result to the authoritative logged record,
// falling back to the result's own payload if the log read fails.
func (s *ChromemStore) recordFromLog(id string, result chromemgo.Result) mem.MemoryRecord {
	var record mem.MemoryRecord
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		var stored storedRecord
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		record = fromStored(stored)
		found = true
		return nil
	})
	if err == nil && found {
		return record
	}

	return mem.MemoryRecord{
		ID:        result.ID,
		Content:   result.Content,
		Embedding: result.Embedding,
		Meta:      mem.ParseFlat(result.Metadata),
	}
}

func fromStored(stored storedRecord) mem.MemoryRecord {
	return mem.MemoryRecord{
		ID:        stored.ID,
		Content:   stored.Content,
		Embedding: stored.Embedding,
		Seq:       stored.Seq,
		Meta:      mem.ParseFlat(stored.Metadata),
	}
}

// ScanAll implements mem.RecordStore via a full log scan.
func (s *ChromemStore) ScanAll(ctx context.Context, filter mem.Filter) ([]mem.MemoryRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var records []mem.MemoryRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				log.Warn("Skipping unreadable record in log", "key", string(k), "error", err)
				return nil
			}
			if len(filter) > 0 && !mem.MatchesFilter(stored.Metadata, filter) {
				return nil
			}
			records = append(records, fromStored(stored))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "scanning record log: %v", err)
	}
	return records, nil
}

// DeleteAll implements mem.RecordStore. The log buckets and the vector
// collection are recreated empty; the fixed dimension is preserved.
func (s *ChromemStore) DeleteAll(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(recordsBucket)
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "clearing record log: %v", err)
	}

	if err := s.vectors.DeleteCollection(s.name); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "dropping vector collection: %v", err)
	}
	collection, err := s.vectors.CreateCollection(s.name, nil, nil)
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "recreating vector collection: %v", err)
	}
	s.collection = collection

	log.Info("Cleared record store", "collection", s.name)
	return nil
}

// Count implements mem.RecordStore.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(errors.ErrStoreUnavailable, "counting records: %v", err)
	}
	return count, nil
}

// Stats implements mem.RecordStore.
func (s *ChromemStore) Stats(ctx context.Context) (mem.StoreStats, error) {
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
func (s *ChromemStore) Close() error {
	return s.db.Close()
}

// isInsufficientDocsError matches chromem's complaint when nResults exceeds
// the (possibly filtered) document count.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
