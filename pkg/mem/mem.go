package mem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synaptiq/membrain/pkg/embed"
	"github.com/synaptiq/membrain/pkg/emotion"
	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/nlp"
)

// Retrieval defaults and hybrid scoring weights.
const (
	// DefaultRetrievalLimit is the default number of memories returned by
	// RetrieveMemories.
	DefaultRetrievalLimit = 5

	// DefaultRelevanceThreshold is the minimum similarity for a candidate to
	// be returned.
	DefaultRelevanceThreshold = 0.3

	// entityBoostWeight and keywordBoostWeight price one metadata overlap.
	// Entity matches are proper nouns and specific referents, a stronger
	// relevance signal than generic keyword overlap.
	entityBoostWeight  = 0.15
	keywordBoostWeight = 0.05

	// maxTotalBoost caps the combined boost so metadata overlap alone cannot
	// dominate vector similarity.
	maxTotalBoost = 0.30

	// hybridOverfetch multiplies the fetch size when hybrid reranking will
	// run, so the boost step has enough candidates to reorder.
	hybridOverfetch = 3

	// topKeywordsStored is how many extracted keywords a record keeps.
	topKeywordsStored = 5

	// topicKeywords is how many stored keywords contribute topic candidates.
	topicKeywords = 3
)

// boostCategories are the entity categories that participate in hybrid
// scoring.
var boostCategories = []string{
	nlp.CategoryPerson, nlp.CategoryOrg, nlp.CategoryGPE, nlp.CategoryProduct,
}

// QuerySignals carries the retrieval signals extracted from a query. When
// supplied to RetrieveMemories, hybrid reranking runs.
type QuerySignals struct {
	// EntityValues are entity strings extracted from the query.
	EntityValues []string

	// TopKeywords are the query's top keywords.
	TopKeywords []string
}

// Store is the memory orchestrator: the single authoritative object for
// reading and writing conversational memory. It applies best-effort enrichment
// on write and hybrid ranking on read.
//
// Records are immutable once written, so a single read-write mutex around the
// bulk-destructive ClearAllMemories is all the locking the store needs.
type Store struct {
	records    RecordStore
	embedder   embed.Embedder
	analyzer   nlp.Analyzer
	classifier emotion.Classifier

	relevanceThreshold float64

	mutex sync.RWMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAnalyzer attaches an entity/keyword extractor used for enrichment.
func WithAnalyzer(analyzer nlp.Analyzer) StoreOption {
	return func(s *Store) {
		s.analyzer = analyzer
	}
}

// WithClassifier attaches an emotion classifier used for enrichment.
func WithClassifier(classifier emotion.Classifier) StoreOption {
	return func(s *Store) {
		s.classifier = classifier
	}
}

// WithRelevanceThreshold overrides the minimum similarity for retrieval.
func WithRelevanceThreshold(threshold float64) StoreOption {
	return func(s *Store) {
		s.relevanceThreshold = threshold
	}
}

// NewStore creates a memory store over the given record store and embedder.
// The analyzer and classifier are optional; without them records are stored
// with base metadata only.
func NewStore(records RecordStore, embedder embed.Embedder, opts ...StoreOption) (*Store, error) {
	if records == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "record store cannot be nil")
	}
	if embedder == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "embedder cannot be nil")
	}

	s := &Store{
		records:            records,
		embedder:           embedder,
		relevanceThreshold: DefaultRelevanceThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddOptions controls a single AddMemory call.
type AddOptions struct {
	// Type classifies the record; defaults to conversation.
	Type string

	// Meta is caller-supplied metadata (role, custom tags). Enrichment fields
	// computed here take precedence over caller values.
	Meta Metadata

	// SkipEnrichment stores the record with base metadata only, without
	// calling the analyzer or classifier.
	SkipEnrichment bool
}

// enriched is the outcome of the best-effort enrichment step.
type enriched struct {
	analysis       nlp.Analysis
	classification emotion.Classification
	hasAnalysis    bool
	hasEmotion     bool
}

// AddMemory embeds and stores one piece of content, returning the new record
// id. Enrichment failures degrade to an unenriched record; embedding or
// storage failures are fatal for the call. No deduplication is performed.
func (s *Store) AddMemory(ctx context.Context, content string, opts AddOptions) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "content cannot be empty")
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", errors.Wrap(errors.ErrEmbeddingFailed, "embedding content: %v", err)
	}

	meta := opts.Meta
	meta.Type = opts.Type
	if meta.Type == "" {
		meta.Type = TypeConversation
	}
	meta.Timestamp = time.Now()
	applyTextStats(&meta, content)

	if !opts.SkipEnrichment {
		result, err := s.enrich(ctx, content)
		if err != nil {
			// Enrichment is best-effort: degrade to the base record.
			log.WarnContext(ctx, "Enrichment failed, storing unenriched record", "error", err)
		} else {
			meta = applyEnrichment(meta, result)
		}
	}

	record := MemoryRecord{
		ID:        uuid.New().String(),
		Content:   content,
		Embedding: vector,
		Meta:      meta,
	}

	s.mutex.RLock()
	err = s.records.Insert(ctx, record)
	s.mutex.RUnlock()
	if err != nil {
		return "", errors.Wrap(err, "inserting memory record")
	}

	log.DebugContext(ctx, "Stored memory",
		"id", record.ID,
		"type", meta.Type,
		"role", meta.Role,
		"enriched", !opts.SkipEnrichment)

	return record.ID, nil
}

// enrich runs the analyzer and classifier over the content. Partial results
// are kept: an analyzer failure does not discard a successful classification.
// Returns an error only when every configured adapter failed.
func (s *Store) enrich(ctx context.Context, content string) (enriched, error) {
	result := enriched{}
	var firstErr error

	if s.analyzer != nil {
		analysis, err := s.analyzer.Analyze(ctx, content)
		if err != nil {
			firstErr = errors.Wrap(errors.ErrAdapterFailure, "analyzing content: %v", err)
		} else {
			result.analysis = analysis
			result.hasAnalysis = true
		}
	}

	if s.classifier != nil {
		scores, err := s.classifier.Classify(ctx, content)
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrap(errors.ErrAdapterFailure, "classifying emotion: %v", err)
			}
		} else {
			result.classification = emotion.Interpret(scores, content)
			result.hasEmotion = true
		}
	}

	if !result.hasAnalysis && !result.hasEmotion && firstErr != nil {
		return enriched{}, firstErr
	}
	return result, nil
}

// applyEnrichment merges enrichment output into the record metadata.
func applyEnrichment(meta Metadata, result enriched) Metadata {
	if result.hasAnalysis {
		keywords := result.analysis.Keywords
		if len(keywords) > topKeywordsStored {
			keywords = keywords[:topKeywordsStored]
		}
		meta.Keywords = keywords
		meta.Topics = result.analysis.Topics
		meta.Entities = result.analysis.Entities
		meta.Intent = result.analysis.Intent
	}

	if result.hasEmotion {
		c := result.classification
		meta.Sentiment = c.Primary
		meta.SentimentScore = c.Score
		switch meta.Role {
		case RoleUser:
			meta.UserEmotion = c.Primary
			meta.UserEmotionScore = c.Score
			meta.UserEmotionIsMixed = c.IsMixed
			meta.UserEmotionContext = c.MixedContext
		case RoleAssistant:
			meta.BotEmotion = c.Primary
			meta.BotEmotionScore = c.Score
		}
	}

	return meta
}

// negationWords flag surface-level negation in the content.
var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "neither": true,
	"nothing": true, "nobody": true, "nowhere": true, "cannot": true,
}

// applyTextStats fills the surface-form statistics computed from the content
// itself. These need no adapter and are always present.
func applyTextStats(meta *Metadata, content string) {
	words := strings.Fields(content)
	meta.WordCount = len(words)
	meta.HasQuestion = strings.Contains(content, "?")

	for _, word := range words {
		w := strings.ToLower(strings.Trim(word, ".,!?;:'\""))
		if negationWords[w] || strings.HasSuffix(w, "n't") {
			meta.HasNegation = true
			break
		}
	}

	sentences := 0
	inTerminator := false
	for _, r := range content {
		switch r {
		case '.', '!', '?':
			if !inTerminator {
				sentences++
				inTerminator = true
			}
		default:
			inTerminator = false
		}
	}
	if sentences == 0 && len(words) > 0 {
		sentences = 1
	}
	meta.SentenceCount = sentences
}

// RetrieveOptions controls a single RetrieveMemories call.
type RetrieveOptions struct {
	// Limit is the maximum number of candidates returned; defaults to
	// DefaultRetrievalLimit.
	Limit int

	// Type restricts results to one record type when non-empty.
	Type string

	// Signals enables hybrid reranking when non-nil.
	Signals *QuerySignals
}

// RetrieveMemories returns the most relevant stored memories for a query,
// ordered by descending score. With Signals supplied the vector ranking is
// reranked by entity and keyword overlap against each candidate's metadata.
func (s *Store) RetrieveMemories(ctx context.Context, query string, opts RetrieveOptions) ([]Candidate, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}

	total, err := s.records.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting records")
	}
	if total == 0 {
		// Empty corpus: skip the adapter calls entirely.
		return []Candidate{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrEmbeddingFailed, "embedding query: %v", err)
	}

	fetchSize := limit
	if opts.Signals != nil {
		fetchSize = limit * hybridOverfetch
	}
	if fetchSize > total {
		fetchSize = total
	}

	var filter Filter
	if opts.Type != "" {
		filter = Filter{keyType: opts.Type}
	}

	hits, err := s.records.NearestNeighbors(ctx, vector, fetchSize, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying nearest neighbors")
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		similarity := 1 - hit.Distance
		if similarity < s.relevanceThreshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Record:       hit.Record,
			Similarity:   similarity,
			BoostedScore: similarity,
		})
	}

	if opts.Signals != nil {
		applyHybridBoosts(candidates, *opts.Signals)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].BoostedScore > candidates[j].BoostedScore
		})
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Similarity > candidates[j].Similarity
		})
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	log.DebugContext(ctx, "Retrieved memories",
		"query_len", len(query),
		"fetched", len(hits),
		"returned", len(candidates),
		"hybrid", opts.Signals != nil)

	return candidates, nil
}

// applyHybridBoosts computes the metadata-overlap boosts for each candidate
// in place.
func applyHybridBoosts(candidates []Candidate, signals QuerySignals) {
	queryEntities := lowerSet(signals.EntityValues)
	queryKeywords := lowerSet(signals.TopKeywords)

	for i := range candidates {
		meta := candidates[i].Record.Meta

		entityMatches := 0
		for _, category := range boostCategories {
			for _, value := range meta.Entities[category] {
				if queryEntities[strings.ToLower(value)] {
					entityMatches++
				}
			}
		}

		keywordMatches := 0
		for _, keyword := range meta.Keywords {
			if queryKeywords[strings.ToLower(keyword)] {
				keywordMatches++
			}
		}

		entityBoost := entityBoostWeight * float64(entityMatches)
		keywordBoost := keywordBoostWeight * float64(keywordMatches)
		totalBoost := entityBoost + keywordBoost
		if totalBoost > maxTotalBoost {
			totalBoost = maxTotalBoost
		}
		boosted := candidates[i].Similarity + totalBoost
		if boosted > 1.0 {
			boosted = 1.0
		}

		candidates[i].EntityBoost = entityBoost
		candidates[i].KeywordBoost = keywordBoost
		candidates[i].BoostedScore = boosted
	}
}

// GetConversationHistory returns the most recent nRecent conversation turns in
// chronological (oldest-first) order. Equal timestamps break on insertion
// sequence so the order is deterministic regardless of scan order.
func (s *Store) GetConversationHistory(ctx context.Context, nRecent int) ([]MemoryRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records, err := s.records.ScanAll(ctx, Filter{keyType: TypeConversation})
	if err != nil {
		return nil, errors.Wrap(err, "scanning conversation records")
	}

	// Newest first, then keep the head and flip back to chronological.
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].Meta.Timestamp, records[j].Meta.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].Seq > records[j].Seq
	})

	if nRecent > 0 && len(records) > nRecent {
		records = records[:nRecent]
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// GetTopicStatistics aggregates conversation topics across the whole store.
// Topic candidates come from every entity value and the top stored keywords of
// each record, keyed case-insensitively. Topics mentioned fewer than twice are
// dropped. Results are ordered by count descending.
func (s *Store) GetTopicStatistics(ctx context.Context) ([]TopicStat, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records, err := s.records.ScanAll(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "scanning records")
	}

	type accumulator struct {
		count      int
		categories map[string]int
		emotions   map[string]int
	}
	topics := make(map[string]*accumulator)

	for _, record := range records {
		meta := record.Meta

		var terms []string
		for _, values := range meta.Entities {
			terms = append(terms, values...)
		}
		keywords := meta.Keywords
		if len(keywords) > topicKeywords {
			keywords = keywords[:topicKeywords]
		}
		terms = append(terms, keywords...)

		seen := make(map[string]bool)
		for _, term := range terms {
			key := strings.ToLower(strings.TrimSpace(term))
			if len(key) <= 1 || seen[key] {
				continue
			}
			seen[key] = true

			acc := topics[key]
			if acc == nil {
				acc = &accumulator{
					categories: make(map[string]int),
					emotions:   make(map[string]int),
				}
				topics[key] = acc
			}
			acc.count++
			if meta.Sentiment != "" {
				acc.categories[string(emotion.CategoryOf(meta.Sentiment))]++
				acc.emotions[meta.Sentiment]++
			}
		}
	}

	stats := make([]TopicStat, 0, len(topics))
	for topic, acc := range topics {
		if acc.count < 2 {
			continue
		}
		stats = append(stats, TopicStat{
			Topic:                 topic,
			Count:                 acc.count,
			SentimentDistribution: acc.categories,
			DominantSentiment:     dominantKey(acc.categories),
			DominantEmotions:      topKeys(acc.emotions, 2),
		})
	}
	sortTopicStats(stats)

	return stats, nil
}

// ClearAllMemories irreversibly destroys every stored record. The collection
// identity survives, empty. Confirmation is the caller's concern.
func (s *Store) ClearAllMemories(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.records.DeleteAll(ctx); err != nil {
		return errors.Wrap(err, "clearing memory store")
	}
	log.InfoContext(ctx, "Cleared all memories")
	return nil
}

// GetStats describes the backing record store.
func (s *Store) GetStats(ctx context.Context) (StoreStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.records.Stats(ctx)
}

// Close releases the backing store.
func (s *Store) Close() error {
	return s.records.Close()
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

// dominantKey returns the most frequent key; ties break alphabetically.
func dominantKey(counts map[string]int) string {
	best, bestCount := "", -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

// topKeys returns up to n keys ordered by descending count, ties alphabetical.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
