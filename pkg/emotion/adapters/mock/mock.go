package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/synaptiq/membrain/pkg/emotion"
)

// MockClassifier implements the emotion.Classifier interface with canned
// score sets for testing.
type MockClassifier struct {
	// cannedScores maps exact input text to predetermined score sets
	cannedScores map[string][]emotion.Score

	// defaultScores is returned when no matching canned result is found
	defaultScores []emotion.Score

	// shouldError indicates if the classifier should return errors
	shouldError bool

	// mutex protects state from concurrent access
	mutex sync.RWMutex

	// callHistory records every Classify input
	callHistory []string
}

// MockOption is a function that configures a MockClassifier.
type MockOption func(*MockClassifier)

// WithCannedScores registers a fixed score set for an exact input text.
func WithCannedScores(text string, scores []emotion.Score) MockOption {
	return func(m *MockClassifier) {
		m.cannedScores[text] = scores
	}
}

// WithDefaultScores sets the score set returned for unmatched inputs.
func WithDefaultScores(scores []emotion.Score) MockOption {
	return func(m *MockClassifier) {
		m.defaultScores = scores
	}
}

// WithShouldError configures whether the mock returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockClassifier) {
		m.shouldError = shouldErr
	}
}

// NewMockClassifier creates a new MockClassifier with the given options.
// The default result scores every label near zero with surprise on top,
// matching the neutral fallback of the real classifiers.
func NewMockClassifier(opts ...MockOption) *MockClassifier {
	m := &MockClassifier{
		cannedScores: make(map[string][]emotion.Score),
		callHistory:  make([]string, 0),
	}
	for _, label := range emotion.Labels {
		score := 0.05
		if label == emotion.Surprise {
			score = 0.2
		}
		m.defaultScores = append(m.defaultScores, emotion.Score{Label: label, Score: score})
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Classify implements the emotion.Classifier interface.
func (m *MockClassifier) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = append(m.callHistory, text)

	if m.shouldError {
		return nil, errors.New("mock classifier error")
	}

	if scores, ok := m.cannedScores[text]; ok {
		return cloneScores(scores), nil
	}

	return cloneScores(m.defaultScores), nil
}

// CallCount returns how many times Classify has been called.
func (m *MockClassifier) CallCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.callHistory)
}

// Calls returns a copy of all Classify inputs in order.
func (m *MockClassifier) Calls() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	calls := make([]string, len(m.callHistory))
	copy(calls, m.callHistory)
	return calls
}

func cloneScores(scores []emotion.Score) []emotion.Score {
	out := make([]emotion.Score, len(scores))
	copy(out, scores)
	return out
}
