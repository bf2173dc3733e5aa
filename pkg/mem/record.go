// Package mem implements the conversational memory engine: durable vectorized
// memory records, best-effort enrichment at ingestion, hybrid
// (semantic + metadata) retrieval, conversation-history reconstruction and
// topic aggregation.
package mem

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Memory record types.
const (
	TypeConversation = "conversation"
	TypeFact         = "fact"
	TypeEvent        = "event"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MemoryRecord is a single stored memory. Records are immutable once written;
// the only destructive operation is a bulk clear of the whole store.
type MemoryRecord struct {
	// ID is the unique identifier, assigned at creation.
	ID string

	// Content is the text payload.
	Content string

	// Embedding is the fixed-dimension vector for Content.
	Embedding []float32

	// Seq is a monotonically increasing insertion sequence number assigned by
	// the record store. It breaks timestamp ties deterministically.
	Seq uint64

	// Meta holds the typed metadata attached at creation.
	Meta Metadata
}

// Metadata is the typed record metadata. Known fields are explicit; anything
// else rides in Extra. Multi-value fields are genuine lists internally and are
// serialized to flat strings only at the storage boundary.
type Metadata struct {
	// Type classifies the record (conversation, fact, event, ...).
	Type string

	// Timestamp is the creation time. Immutable.
	Timestamp time.Time

	// Role is the speaker for conversation records (user or assistant).
	Role string

	// Sentiment is the primary emotion label from enrichment.
	Sentiment string

	// SentimentScore is the primary label's classifier score.
	SentimentScore float64

	// Keywords are the top extracted keywords, most frequent first.
	Keywords []string

	// Topics are extracted noun-phrase themes.
	Topics []string

	// Entities maps entity category (PERSON, ORG, ...) to values.
	Entities map[string][]string

	// Intent is the classified intent of the content.
	Intent string

	// HasQuestion and HasNegation are surface-form flags computed from the
	// content itself.
	HasQuestion bool
	HasNegation bool

	// WordCount and SentenceCount are simple size statistics of the content.
	WordCount     int
	SentenceCount int

	// UserEmotion fields are set for role=user records.
	UserEmotion        string
	UserEmotionScore   float64
	UserEmotionIsMixed bool
	UserEmotionContext string

	// BotEmotion fields are set for role=assistant records.
	BotEmotion      string
	BotEmotionScore float64

	// Extra carries caller-supplied custom tags.
	Extra map[string]string
}

// EntityCount returns the total number of entity values across categories.
func (m Metadata) EntityCount() int {
	n := 0
	for _, values := range m.Entities {
		n += len(values)
	}
	return n
}

// Flat metadata keys used at the storage boundary.
const (
	keyType            = "type"
	keyTimestamp       = "timestamp"
	keyRole            = "role"
	keySentiment       = "sentiment"
	keySentimentScore  = "sentiment_score"
	keyKeywords        = "keywords"
	keyTopics          = "topics"
	keyEntityCount     = "entity_count"
	keyIntent          = "intent"
	keyHasQuestion     = "has_question"
	keyHasNegation     = "has_negation"
	keyWordCount       = "word_count"
	keySentenceCount   = "sentence_count"
	keyUserEmotion     = "user_emotion"
	keyUserEmotionScr  = "user_emotion_score"
	keyUserEmotionMix  = "user_emotion_is_mixed"
	keyUserEmotionCtx  = "user_emotion_context"
	keyBotEmotion      = "bot_emotion"
	keyBotEmotionScore = "bot_emotion_score"
	entityKeyPrefix    = "entities_"
	listSeparator      = ", "
)

// Flatten serializes the metadata to the flat string map stored by backends.
// Lists are comma-joined; entity categories become entities_<category> keys.
func (m Metadata) Flatten() map[string]string {
	flat := make(map[string]string)

	if m.Type != "" {
		flat[keyType] = m.Type
	}
	if !m.Timestamp.IsZero() {
		flat[keyTimestamp] = m.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if m.Role != "" {
		flat[keyRole] = m.Role
	}
	if m.Sentiment != "" {
		flat[keySentiment] = m.Sentiment
		flat[keySentimentScore] = formatFloat(m.SentimentScore)
	}
	if len(m.Keywords) > 0 {
		flat[keyKeywords] = strings.Join(m.Keywords, listSeparator)
	}
	if len(m.Topics) > 0 {
		flat[keyTopics] = strings.Join(m.Topics, listSeparator)
	}
	if len(m.Entities) > 0 {
		flat[keyEntityCount] = strconv.Itoa(m.EntityCount())
		for category, values := range m.Entities {
			if len(values) == 0 {
				continue
			}
			flat[entityKeyPrefix+strings.ToLower(category)] = strings.Join(values, listSeparator)
		}
	}
	if m.Intent != "" {
		flat[keyIntent] = m.Intent
	}
	if m.HasQuestion {
		flat[keyHasQuestion] = "true"
	}
	if m.HasNegation {
		flat[keyHasNegation] = "true"
	}
	if m.WordCount > 0 {
		flat[keyWordCount] = strconv.Itoa(m.WordCount)
	}
	if m.SentenceCount > 0 {
		flat[keySentenceCount] = strconv.Itoa(m.SentenceCount)
	}
	if m.UserEmotion != "" {
		flat[keyUserEmotion] = m.UserEmotion
		flat[keyUserEmotionScr] = formatFloat(m.UserEmotionScore)
		flat[keyUserEmotionMix] = strconv.FormatBool(m.UserEmotionIsMixed)
		if m.UserEmotionContext != "" {
			flat[keyUserEmotionCtx] = m.UserEmotionContext
		}
	}
	if m.BotEmotion != "" {
		flat[keyBotEmotion] = m.BotEmotion
		flat[keyBotEmotionScore] = formatFloat(m.BotEmotionScore)
	}

	for k, v := range m.Extra {
		if _, reserved := flat[k]; !reserved {
			flat[k] = v
		}
	}

	return flat
}

// ParseFlat rebuilds typed metadata from the flat string map of a backend.
// Unknown keys land in Extra. Malformed numeric fields parse to zero rather
// than failing the read.
func ParseFlat(flat map[string]string) Metadata {
	m := Metadata{}

	for k, v := range flat {
		switch {
		case k == keyType:
			m.Type = v
		case k == keyTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				m.Timestamp = ts
			}
		case k == keyRole:
			m.Role = v
		case k == keySentiment:
			m.Sentiment = v
		case k == keySentimentScore:
			m.SentimentScore = parseFloat(v)
		case k == keyKeywords:
			m.Keywords = splitList(v)
		case k == keyTopics:
			m.Topics = splitList(v)
		case k == keyEntityCount:
			// derived, recomputed from the entity lists
		case k == keyIntent:
			m.Intent = v
		case k == keyHasQuestion:
			m.HasQuestion = v == "true"
		case k == keyHasNegation:
			m.HasNegation = v == "true"
		case k == keyWordCount:
			m.WordCount = int(parseFloat(v))
		case k == keySentenceCount:
			m.SentenceCount = int(parseFloat(v))
		case k == keyUserEmotion:
			m.UserEmotion = v
		case k == keyUserEmotionScr:
			m.UserEmotionScore = parseFloat(v)
		case k == keyUserEmotionMix:
			m.UserEmotionIsMixed = v == "true"
		case k == keyUserEmotionCtx:
			m.UserEmotionContext = v
		case k == keyBotEmotion:
			m.BotEmotion = v
		case k == keyBotEmotionScore:
			m.BotEmotionScore = parseFloat(v)
		case strings.HasPrefix(k, entityKeyPrefix):
			if m.Entities == nil {
				m.Entities = make(map[string][]string)
			}
			category := strings.ToUpper(strings.TrimPrefix(k, entityKeyPrefix))
			m.Entities[category] = splitList(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}

	return m
}

// Candidate is a retrieval-time view of a record with its scores. Transient,
// never persisted.
type Candidate struct {
	Record MemoryRecord

	// Similarity is 1 - cosine distance to the query vector.
	Similarity float64

	// EntityBoost and KeywordBoost are the metadata-overlap boosts applied by
	// hybrid scoring; zero when no query signals were supplied.
	EntityBoost  float64
	KeywordBoost float64

	// BoostedScore is min(Similarity + min(EntityBoost+KeywordBoost, 0.30), 1.0).
	BoostedScore float64
}

// TopicStat aggregates one conversation topic across the whole store.
// Computed on demand from a full metadata scan, never persisted.
type TopicStat struct {
	// Topic is the lower-cased topic key.
	Topic string

	// Count is how many records mention the topic.
	Count int

	// SentimentDistribution counts records per coarse sentiment category.
	SentimentDistribution map[string]int

	// DominantSentiment is the most frequent sentiment category.
	DominantSentiment string

	// DominantEmotions are the top-2 emotion labels by frequency.
	DominantEmotions []string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sortTopicStats orders stats by count descending, then topic ascending for a
// stable presentation order.
func sortTopicStats(stats []TopicStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Topic < stats[j].Topic
	})
}
