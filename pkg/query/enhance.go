// Package query enhances raw user queries before they are embedded: it
// appends high-value extracted terms not already present in the text and
// classifies query intent, producing the retrieval signals consumed by hybrid
// ranking.
package query

import (
	"context"
	"strings"

	"github.com/synaptiq/membrain/pkg/errors"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/nlp"
)

// Search strategies, named after the term class that drove the expansion.
const (
	StrategyEntities = "entities"
	StrategyTopics   = "topics"
	StrategyKeywords = "keywords"
)

// maxAppendedTerms caps how many extracted terms an enhancement may append.
const maxAppendedTerms = 3

// topKeywordPool is how many leading keywords are considered for expansion
// and exported as retrieval signals.
const topKeywordPool = 5

// Enhancement is the result of enhancing one query.
type Enhancement struct {
	// Original is the raw query text, unmodified.
	Original string

	// Enhanced is the original text plus any appended terms. Identical to
	// Original when nothing useful could be appended.
	Enhanced string

	// EntityValues are all entity strings extracted from the query.
	EntityValues []string

	// TopKeywords are the query's leading keywords.
	TopKeywords []string

	// Topics are the extracted topics.
	Topics []string

	// Intent is the classified query intent.
	Intent string

	// QueryFocus is the first entity value when one exists, otherwise the
	// first topic; empty when neither exists.
	QueryFocus string

	// SearchStrategy names the term class that drove the expansion.
	SearchStrategy string
}

// Enhancer expands queries using an entity/keyword extractor.
type Enhancer struct {
	analyzer nlp.Analyzer
}

// NewEnhancer creates an Enhancer over the given analyzer.
func NewEnhancer(analyzer nlp.Analyzer) (*Enhancer, error) {
	if analyzer == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "analyzer cannot be nil")
	}
	return &Enhancer{analyzer: analyzer}, nil
}

// Enhance analyzes the query and appends up to three non-redundant high-value
// terms, preferring entities over topics over keywords. The original text is
// always first and unmodified. An analyzer failure degrades to an
// unenhanced query with heuristic intent rather than erroring.
func (e *Enhancer) Enhance(ctx context.Context, text string) Enhancement {
	result := Enhancement{
		Original:       text,
		Enhanced:       text,
		Intent:         classifyIntent(text),
		SearchStrategy: StrategyKeywords,
	}

	analysis, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		log.WarnContext(ctx, "Query analysis failed, using raw query", "error", err)
		return result
	}

	result.EntityValues = analysis.EntityValues(
		nlp.CategoryPerson, nlp.CategoryOrg, nlp.CategoryGPE,
		nlp.CategoryProduct, nlp.CategoryEvent)
	result.TopKeywords = analysis.Keywords
	if len(result.TopKeywords) > topKeywordPool {
		result.TopKeywords = result.TopKeywords[:topKeywordPool]
	}
	result.Topics = analysis.Topics
	if analysis.Intent != "" {
		result.Intent = analysis.Intent
	}

	switch {
	case len(result.EntityValues) > 0:
		result.QueryFocus = result.EntityValues[0]
	case len(result.Topics) > 0:
		result.QueryFocus = result.Topics[0]
	}

	var appended []string
	switch {
	case len(result.EntityValues) > 0:
		result.SearchStrategy = StrategyEntities
		appended = selectAbsent(text, result.EntityValues)
	case len(result.Topics) > 0:
		result.SearchStrategy = StrategyTopics
		appended = selectAbsent(text, result.Topics)
	default:
		result.SearchStrategy = StrategyKeywords
		appended = selectAbsent(text, result.TopKeywords)
	}

	if len(appended) > 0 {
		result.Enhanced = text + " " + strings.Join(appended, " ")
	}

	log.DebugContext(ctx, "Enhanced query",
		"strategy", result.SearchStrategy,
		"appended", len(appended),
		"intent", result.Intent)

	return result
}

// selectAbsent returns up to maxAppendedTerms terms not already present in
// the text.
func selectAbsent(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if len(out) == maxAppendedTerms {
			break
		}
		if term == "" || isAlreadyPresent(text, term) {
			continue
		}
		out = append(out, term)
	}
	return out
}

// isAlreadyPresent reports whether a term adds no retrieval signal: either it
// appears verbatim as a substring, or every one of its tokens is already a
// token of the text.
func isAlreadyPresent(text, term string) bool {
	loweredText := strings.ToLower(text)
	loweredTerm := strings.ToLower(term)

	if strings.Contains(loweredText, loweredTerm) {
		return true
	}

	textTokens := make(map[string]bool)
	for _, token := range strings.Fields(loweredText) {
		textTokens[strings.Trim(token, ".,!?;:'\"")] = true
	}

	termTokens := strings.Fields(loweredTerm)
	if len(termTokens) == 0 {
		return true
	}
	for _, token := range termTokens {
		if !textTokens[token] {
			return false
		}
	}
	return true
}
