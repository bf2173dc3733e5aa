// Package brain is the facade over the memory engine: it wires the record
// store, the adapters, the query enhancer and the trajectory engine into the
// surface consumed by a conversation loop.
package brain

import (
	"context"

	"github.com/synaptiq/membrain/pkg/emotion"
	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
	"github.com/synaptiq/membrain/pkg/query"
)

// DefaultHistoryWindow is how many recent turns feed the trajectory engine.
const DefaultHistoryWindow = 10

// Config contains facade-level options.
type Config struct {
	// HistoryWindow is how many recent conversation turns are inspected for
	// emotional context.
	HistoryWindow int

	// RetrievalLimit is how many memories RetrieveMemories returns when the
	// caller does not pass an explicit limit.
	RetrievalLimit int
}

// DefaultConfig returns the default facade configuration.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:  DefaultHistoryWindow,
		RetrievalLimit: mem.DefaultRetrievalLimit,
	}
}

// Brain exposes the memory engine to its caller.
type Brain struct {
	memories *mem.Store
	enhancer *query.Enhancer
	config   Config
}

// NewBrain creates a Brain over an initialized memory store and query
// enhancer.
func NewBrain(memories *mem.Store, enhancer *query.Enhancer, config Config) (*Brain, error) {
	if memories == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "memory store cannot be nil")
	}
	if enhancer == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "query enhancer cannot be nil")
	}
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = DefaultHistoryWindow
	}
	if config.RetrievalLimit <= 0 {
		config.RetrievalLimit = mem.DefaultRetrievalLimit
	}

	log.Debug("Brain initialized",
		"history_window", config.HistoryWindow,
		"retrieval_limit", config.RetrievalLimit,
	)

	return &Brain{
		memories: memories,
		enhancer: enhancer,
		config:   config,
	}, nil
}

// AddMemory stores one piece of content with enrichment and returns its id.
func (b *Brain) AddMemory(ctx context.Context, content string, opts mem.AddOptions) (string, error) {
	return b.memories.AddMemory(ctx, content, opts)
}

// RecordTurn stores one conversational exchange as two enriched records.
// The assistant text may be empty when recording the user side alone.
func (b *Brain) RecordTurn(ctx context.Context, userText, assistantText string) error {
	_, err := b.memories.AddMemory(ctx, userText, mem.AddOptions{
		Type: mem.TypeConversation,
		Meta: mem.Metadata{Role: mem.RoleUser},
	})
	if err != nil {
		return errors.Wrap(err, "recording user turn")
	}

	if assistantText == "" {
		return nil
	}
	_, err = b.memories.AddMemory(ctx, assistantText, mem.AddOptions{
		Type: mem.TypeConversation,
		Meta: mem.Metadata{Role: mem.RoleAssistant},
	})
	if err != nil {
		return errors.Wrap(err, "recording assistant turn")
	}
	return nil
}

// EnhanceQuery expands a raw query with high-value extracted terms and
// classifies its intent.
func (b *Brain) EnhanceQuery(ctx context.Context, text string) query.Enhancement {
	return b.enhancer.Enhance(ctx, text)
}

// RetrieveMemories enhances the query, embeds the enhanced text and returns
// the hybrid-ranked memories most relevant to it. A non-positive limit falls
// back to the configured RetrievalLimit.
func (b *Brain) RetrieveMemories(ctx context.Context, text string, limit int) ([]mem.Candidate, error) {
	if limit <= 0 {
		limit = b.config.RetrievalLimit
	}
	enhancement := b.enhancer.Enhance(ctx, text)

	return b.memories.RetrieveMemories(ctx, enhancement.Enhanced, mem.RetrieveOptions{
		Limit: limit,
		Signals: &mem.QuerySignals{
			EntityValues: enhancement.EntityValues,
			TopKeywords:  enhancement.TopKeywords,
		},
	})
}

// GetConversationHistory returns the last nRecent conversation turns in
// chronological order.
func (b *Brain) GetConversationHistory(ctx context.Context, nRecent int) ([]mem.MemoryRecord, error) {
	return b.memories.GetConversationHistory(ctx, nRecent)
}

// GetTopicStatistics aggregates conversation topics across the store.
func (b *Brain) GetTopicStatistics(ctx context.Context) ([]mem.TopicStat, error) {
	return b.memories.GetTopicStatistics(ctx)
}

// ClearAllMemories irreversibly destroys every stored record.
func (b *Brain) ClearAllMemories(ctx context.Context) error {
	return b.memories.ClearAllMemories(ctx)
}

// GetStats describes the backing store.
func (b *Brain) GetStats(ctx context.Context) (mem.StoreStats, error) {
	return b.memories.GetStats(ctx)
}

// GetEmotionalContextSummary renders the human-readable emotional summary of
// the recent conversation window.
func (b *Brain) GetEmotionalContextSummary(ctx context.Context) (string, error) {
	window, err := b.emotionWindow(ctx)
	if err != nil {
		return "", err
	}
	return emotion.ContextSummary(window), nil
}

// GetEmotionalAdaptationGuidance renders tone-adaptation instructions for the
// prompt assembler. Empty when no labeled user turns exist.
func (b *Brain) GetEmotionalAdaptationGuidance(ctx context.Context) (string, error) {
	window, err := b.emotionWindow(ctx)
	if err != nil {
		return "", err
	}
	return emotion.AdaptationGuidance(window), nil
}

// ShouldAdjustTone maps the latest user emotion to a tone recommendation.
func (b *Brain) ShouldAdjustTone(ctx context.Context) (emotion.ToneRecommendation, error) {
	window, err := b.emotionWindow(ctx)
	if err != nil {
		return emotion.ToneRecommendation{}, err
	}
	if len(window.User) == 0 {
		return emotion.ShouldAdjustTone("", 0), nil
	}
	latest := window.User[len(window.User)-1]
	return emotion.ShouldAdjustTone(latest.Emotion, latest.Score), nil
}

// Close releases the backing store.
func (b *Brain) Close() error {
	return b.memories.Close()
}

// emotionWindow builds the trajectory engine's input from the recent
// conversation history.
func (b *Brain) emotionWindow(ctx context.Context) (emotion.Window, error) {
	records, err := b.memories.GetConversationHistory(ctx, b.config.HistoryWindow)
	if err != nil {
		return emotion.Window{}, errors.Wrap(err, "loading emotional context")
	}

	window := emotion.Window{}
	for _, record := range records {
		meta := record.Meta
		switch meta.Role {
		case mem.RoleUser:
			if meta.UserEmotion == "" {
				continue
			}
			window.User = append(window.User, emotion.TurnEmotion{
				Emotion:      meta.UserEmotion,
				Score:        meta.UserEmotionScore,
				IsMixed:      meta.UserEmotionIsMixed,
				MixedContext: meta.UserEmotionContext,
			})
		case mem.RoleAssistant:
			if meta.BotEmotion == "" {
				continue
			}
			window.Bot = append(window.Bot, emotion.TurnEmotion{
				Emotion: meta.BotEmotion,
				Score:   meta.BotEmotionScore,
			})
		}
	}
	return window, nil
}
