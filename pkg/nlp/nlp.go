// Package nlp defines the entity/keyword extraction contract consumed by the
// memory engine. The extraction model itself is external; this package only
// fixes the interface and result shape.
package nlp

import (
	"context"
)

// Entity categories the retrieval layer cares about. Extractors may return
// additional categories; these are the ones used for hybrid search boosting.
const (
	CategoryPerson  = "PERSON"
	CategoryOrg     = "ORG"
	CategoryGPE     = "GPE"
	CategoryProduct = "PRODUCT"
	CategoryEvent   = "EVENT"
)

// Analysis is the result of analyzing a piece of text.
type Analysis struct {
	// Entities maps entity category (PERSON, ORG, GPE, ...) to values,
	// de-duplicated and in order of first appearance.
	Entities map[string][]string

	// Keywords are salient terms ranked by frequency, most frequent first.
	Keywords []string

	// Topics are short noun-phrase themes, most frequent first.
	Topics []string

	// Intent is the classified intent (question, statement, command, expression).
	Intent string
}

// EntityValues flattens entity values for the given categories, preserving
// category order then appearance order.
func (a Analysis) EntityValues(categories ...string) []string {
	var values []string
	for _, cat := range categories {
		values = append(values, a.Entities[cat]...)
	}
	return values
}

// EntityCount returns the total number of extracted entity values.
func (a Analysis) EntityCount() int {
	n := 0
	for _, values := range a.Entities {
		n += len(values)
	}
	return n
}

// Analyzer is the interface for entity/keyword extraction adapters.
type Analyzer interface {
	// Analyze extracts entities, keywords, topics and intent from text.
	Analyze(ctx context.Context, text string) (Analysis, error)
}
