package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/synaptiq/membrain/pkg/nlp"
)

// MockAnalyzer implements the nlp.Analyzer interface with canned results.
type MockAnalyzer struct {
	// cannedResults maps exact input text to predetermined analyses
	cannedResults map[string]nlp.Analysis

	// defaultResult is returned when no matching canned result is found
	defaultResult nlp.Analysis

	// shouldError indicates if the analyzer should return errors
	shouldError bool

	// mutex protects state from concurrent access
	mutex sync.RWMutex

	// callHistory records every Analyze input
	callHistory []string
}

// MockOption is a function that configures a MockAnalyzer.
type MockOption func(*MockAnalyzer)

// WithCannedResult registers a fixed analysis for an exact input text.
func WithCannedResult(text string, analysis nlp.Analysis) MockOption {
	return func(m *MockAnalyzer) {
		m.cannedResults[text] = analysis
	}
}

// WithDefaultResult sets the analysis returned for unmatched inputs.
func WithDefaultResult(analysis nlp.Analysis) MockOption {
	return func(m *MockAnalyzer) {
		m.defaultResult = analysis
	}
}

// WithShouldError configures whether the mock returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockAnalyzer) {
		m.shouldError = shouldErr
	}
}

// NewMockAnalyzer creates a new MockAnalyzer with the given options.
func NewMockAnalyzer(opts ...MockOption) *MockAnalyzer {
	m := &MockAnalyzer{
		cannedResults: make(map[string]nlp.Analysis),
		defaultResult: nlp.Analysis{
			Entities: map[string][]string{},
			Intent:   "statement",
		},
		callHistory: make([]string, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Analyze implements the nlp.Analyzer interface.
func (m *MockAnalyzer) Analyze(ctx context.Context, text string) (nlp.Analysis, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = append(m.callHistory, text)

	if m.shouldError {
		return nlp.Analysis{}, errors.New("mock analyzer error")
	}

	if analysis, ok := m.cannedResults[text]; ok {
		return analysis, nil
	}

	return m.defaultResult, nil
}

// CallCount returns how many times Analyze has been called.
func (m *MockAnalyzer) CallCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.callHistory)
}

// Calls returns a copy of all Analyze inputs in order.
func (m *MockAnalyzer) Calls() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	calls := make([]string, len(m.callHistory))
	copy(calls, m.callHistory)
	return calls
}
