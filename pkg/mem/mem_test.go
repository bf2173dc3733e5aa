package mem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedmock "github.com/synaptiq/membrain/pkg/embed/adapters/mock"
	"github.com/synaptiq/membrain/pkg/emotion"
	emomock "github.com/synaptiq/membrain/pkg/emotion/adapters/mock"
	"github.com/synaptiq/membrain/pkg/mem"
	storemock "github.com/synaptiq/membrain/pkg/mem/store/mock"
	"github.com/synaptiq/membrain/pkg/nlp"
	nlpmock "github.com/synaptiq/membrain/pkg/nlp/adapters/mock"
)

func TestAddMemorySkipEnrichment(t *testing.T) {
	ctx := context.Background()
	analyzer := nlpmock.NewMockAnalyzer()
	classifier := emomock.NewMockClassifier()

	store, err := mem.NewStore(
		storemock.NewMockStore(),
		embedmock.NewMockEmbedder(),
		mem.WithAnalyzer(analyzer),
		mem.WithClassifier(classifier),
	)
	require.NoError(t, err)

	_, err = store.AddMemory(ctx, "unenriched content", mem.AddOptions{SkipEnrichment: true})
	require.NoError(t, err)
	assert.Equal(t, 0, analyzer.CallCount())
	assert.Equal(t, 0, classifier.CallCount())

	_, err = store.AddMemory(ctx, "enriched content", mem.AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.CallCount())
	assert.Equal(t, 1, classifier.CallCount())
}

func TestAddMemoryEnrichmentFailureDegrades(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()

	store, err := mem.NewStore(
		records,
		embedmock.NewMockEmbedder(),
		mem.WithAnalyzer(nlpmock.NewMockAnalyzer(nlpmock.WithShouldError(true))),
		mem.WithClassifier(emomock.NewMockClassifier(emomock.WithShouldError(true))),
	)
	require.NoError(t, err)

	id, err := store.AddMemory(ctx, "content that cannot be enriched", mem.AddOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	count, err := records.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddMemoryEmptyContent(t *testing.T) {
	store, err := mem.NewStore(storemock.NewMockStore(), embedmock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = store.AddMemory(context.Background(), "   ", mem.AddOptions{})
	assert.Error(t, err)
}

func TestAddMemoryRoleEmotionFields(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()
	classifier := emomock.NewMockClassifier(
		emomock.WithCannedScores("I am so happy today", []emotion.Score{
			{Label: emotion.Joy, Score: 0.9},
		}),
	)

	store, err := mem.NewStore(records, embedmock.NewMockEmbedder(),
		mem.WithClassifier(classifier))
	require.NoError(t, err)

	_, err = store.AddMemory(ctx, "I am so happy today", mem.AddOptions{
		Meta: mem.Metadata{Role: mem.RoleUser},
	})
	require.NoError(t, err)

	stored, err := records.ScanAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, emotion.Joy, stored[0].Meta.Sentiment)
	assert.Equal(t, emotion.Joy, stored[0].Meta.UserEmotion)
	assert.Equal(t, 0.9, stored[0].Meta.UserEmotionScore)
	assert.Empty(t, stored[0].Meta.BotEmotion)
}

func TestAddMemoryTextStats(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()
	store, err := mem.NewStore(records, embedmock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = store.AddMemory(ctx, "I don't like it. Do you?", mem.AddOptions{
		SkipEnrichment: true,
	})
	require.NoError(t, err)

	stored, err := records.ScanAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	meta := stored[0].Meta
	assert.True(t, meta.HasQuestion)
	assert.True(t, meta.HasNegation)
	assert.Equal(t, 6, meta.WordCount)
	assert.Equal(t, 2, meta.SentenceCount)
}

func TestRetrieveMemoriesEmptyCorpus(t *testing.T) {
	embedder := embedmock.NewMockEmbedder()
	store, err := mem.NewStore(storemock.NewMockStore(), embedder)
	require.NoError(t, err)

	candidates, err := store.RetrieveMemories(context.Background(), "anything", mem.RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// The empty-corpus short circuit must not touch the embedder.
	assert.Equal(t, 0, embedder.CallCount())
}

// vectors at known cosine similarities to the unit query vector (1, 0).
var (
	queryVector = []float32{1, 0}
	simHalf     = []float32{0.5, 0.8660254}  // cos = 0.5
	simSixty    = []float32{0.6, 0.8}        // cos = 0.6
	simZero     = []float32{0, 1}            // cos = 0
	simNinety   = []float32{0.9, 0.43588989} // cos = 0.9
)

func hybridFixture(t *testing.T) (*mem.Store, *embedmock.MockEmbedder) {
	t.Helper()

	embedder := embedmock.NewMockEmbedder(
		embedmock.WithDimensions(2),
		embedmock.WithCannedVector("tell me about mark", queryVector),
		embedmock.WithCannedVector("Mark went hiking", simHalf),
		embedmock.WithCannedVector("The weather was nice", simSixty),
		embedmock.WithCannedVector("Unrelated database trivia", simZero),
	)
	analyzer := nlpmock.NewMockAnalyzer(
		nlpmock.WithCannedResult("Mark went hiking", nlp.Analysis{
			Entities: map[string][]string{nlp.CategoryPerson: {"Mark"}},
			Keywords: []string{"hiking"},
			Intent:   "statement",
		}),
	)

	store, err := mem.NewStore(storemock.NewMockStore(), embedder,
		mem.WithAnalyzer(analyzer))
	require.NoError(t, err)

	ctx := context.Background()
	for _, content := range []string{"Mark went hiking", "The weather was nice", "Unrelated database trivia"} {
		_, err := store.AddMemory(ctx, content, mem.AddOptions{})
		require.NoError(t, err)
	}

	return store, embedder
}

func TestRetrieveMemoriesEntityBoost(t *testing.T) {
	store, _ := hybridFixture(t)

	candidates, err := store.RetrieveMemories(context.Background(), "tell me about mark",
		mem.RetrieveOptions{
			Signals: &mem.QuerySignals{EntityValues: []string{"Mark"}},
		})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	// The entity match lifts the 0.5-similarity record over the 0.6 one.
	top := candidates[0]
	assert.Equal(t, "Mark went hiking", top.Record.Content)
	assert.InDelta(t, 0.5, top.Similarity, 1e-6)
	assert.InDelta(t, 0.15, top.EntityBoost, 1e-9)
	assert.InDelta(t, 0.65, top.BoostedScore, 1e-6)

	require.Len(t, candidates, 2)
	assert.Equal(t, "The weather was nice", candidates[1].Record.Content)
	assert.InDelta(t, 0.6, candidates[1].BoostedScore, 1e-6)
}

func TestRetrieveMemoriesThreshold(t *testing.T) {
	store, _ := hybridFixture(t)

	candidates, err := store.RetrieveMemories(context.Background(), "tell me about mark",
		mem.RetrieveOptions{})
	require.NoError(t, err)

	// The zero-similarity record never appears.
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Similarity, mem.DefaultRelevanceThreshold)
		assert.NotEqual(t, "Unrelated database trivia", c.Record.Content)
	}

	// Without signals, order follows similarity.
	require.Len(t, candidates, 2)
	assert.Equal(t, "The weather was nice", candidates[0].Record.Content)
}

func TestRetrieveMemoriesBoostCaps(t *testing.T) {
	ctx := context.Background()
	embedder := embedmock.NewMockEmbedder(
		embedmock.WithDimensions(2),
		embedmock.WithCannedVector("query", queryVector),
		embedmock.WithCannedVector("crowded content", simNinety),
	)
	analyzer := nlpmock.NewMockAnalyzer(
		nlpmock.WithCannedResult("crowded content", nlp.Analysis{
			Entities: map[string][]string{
				nlp.CategoryPerson: {"Alice", "Bob"},
				nlp.CategoryOrg:    {"Initech"},
			},
			Keywords: []string{"merger", "deadline"},
		}),
	)

	store, err := mem.NewStore(storemock.NewMockStore(), embedder,
		mem.WithAnalyzer(analyzer))
	require.NoError(t, err)

	_, err = store.AddMemory(ctx, "crowded content", mem.AddOptions{})
	require.NoError(t, err)

	candidates, err := store.RetrieveMemories(ctx, "query", mem.RetrieveOptions{
		Signals: &mem.QuerySignals{
			EntityValues: []string{"alice", "bob", "initech"},
			TopKeywords:  []string{"merger", "deadline"},
		},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	// Raw boosts are 3*0.15 + 2*0.05 = 0.55, capped at 0.30; the final score
	// is additionally capped at 1.0.
	top := candidates[0]
	assert.InDelta(t, 0.45, top.EntityBoost, 1e-9)
	assert.InDelta(t, 0.10, top.KeywordBoost, 1e-9)
	assert.LessOrEqual(t, top.BoostedScore-top.Similarity, 0.30+1e-9)
	assert.LessOrEqual(t, top.BoostedScore, 1.0)
}

func TestGetConversationHistory(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	insert := func(id, content, memType string, ts time.Time) {
		err := records.Insert(ctx, mem.MemoryRecord{
			ID:        id,
			Content:   content,
			Embedding: []float32{1, 0},
			Meta:      mem.Metadata{Type: memType, Timestamp: ts},
		})
		require.NoError(t, err)
	}

	insert("a", "first turn", mem.TypeConversation, base)
	insert("b", "a stored fact", mem.TypeFact, base.Add(time.Minute))
	insert("c", "second turn", mem.TypeConversation, base.Add(2*time.Minute))
	insert("d", "third turn", mem.TypeConversation, base.Add(3*time.Minute))

	store, err := mem.NewStore(records, embedmock.NewMockEmbedder(embedmock.WithDimensions(2)))
	require.NoError(t, err)

	history, err := store.GetConversationHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Most recent two conversation turns, oldest first; the fact is excluded.
	assert.Equal(t, "second turn", history[0].Content)
	assert.Equal(t, "third turn", history[1].Content)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Meta.Timestamp.Before(history[i-1].Meta.Timestamp))
	}
}

func TestGetConversationHistoryTieBreak(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, content := range []string{"one", "two", "three"} {
		err := records.Insert(ctx, mem.MemoryRecord{
			ID:        content,
			Content:   content,
			Embedding: []float32{1, 0},
			Meta:      mem.Metadata{Type: mem.TypeConversation, Timestamp: ts},
		})
		require.NoError(t, err)
	}

	store, err := mem.NewStore(records, embedmock.NewMockEmbedder(embedmock.WithDimensions(2)))
	require.NoError(t, err)

	// Equal timestamps fall back to insertion order.
	history, err := store.GetConversationHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Content)
	assert.Equal(t, "three", history[1].Content)
}

func TestGetTopicStatistics(t *testing.T) {
	ctx := context.Background()
	records := storemock.NewMockStore()

	insert := func(id string, keywords []string, sentiment string) {
		err := records.Insert(ctx, mem.MemoryRecord{
			ID:        id,
			Content:   id,
			Embedding: []float32{1, 0},
			Meta: mem.Metadata{
				Type:      mem.TypeConversation,
				Keywords:  keywords,
				Sentiment: sentiment,
			},
		})
		require.NoError(t, err)
	}

	insert("r1", []string{"python", "testing"}, emotion.Joy)
	insert("r2", []string{"python"}, emotion.Joy)
	insert("r3", []string{"python", "golang"}, emotion.Sadness)

	store, err := mem.NewStore(records, embedmock.NewMockEmbedder(embedmock.WithDimensions(2)))
	require.NoError(t, err)

	stats, err := store.GetTopicStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	python := stats[0]
	assert.Equal(t, "python", python.Topic)
	assert.Equal(t, 3, python.Count)
	assert.Equal(t, "positive", python.DominantSentiment)
	assert.Contains(t, python.DominantEmotions, emotion.Joy)
	assert.Equal(t, 2, python.SentimentDistribution["positive"])
	assert.Equal(t, 1, python.SentimentDistribution["negative"])
}

func TestClearAllMemories(t *testing.T) {
	ctx := context.Background()
	store, err := mem.NewStore(storemock.NewMockStore(), embedmock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = store.AddMemory(ctx, "soon to be gone", mem.AddOptions{})
	require.NoError(t, err)

	require.NoError(t, store.ClearAllMemories(ctx))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
}
