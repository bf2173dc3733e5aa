package emotion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTrajectory(t *testing.T) {
	testCases := []struct {
		name     string
		labels   []string
		expected Trajectory
	}{
		{
			name:     "improving from fear to joy",
			labels:   []string{Fear, Anticipation, Joy},
			expected: TrajectoryImproving,
		},
		{
			name:     "declining from joy to anger",
			labels:   []string{Joy, Pessimism, Anger},
			expected: TrajectoryDeclining,
		},
		{
			name:     "volatile with three distinct labels",
			labels:   []string{Joy, Anger, Surprise},
			expected: TrajectoryVolatile,
		},
		{
			name:     "stable on repeated label",
			labels:   []string{Joy, Joy, Joy},
			expected: TrajectoryStable,
		},
		{
			name:     "stable with two distinct non-shifting labels",
			labels:   []string{Joy, Trust, Joy},
			expected: TrajectoryStable,
		},
		{
			name:     "insufficient data defaults to stable",
			labels:   []string{Anger, Joy},
			expected: TrajectoryStable,
		},
		{
			name:     "only last three labels considered",
			labels:   []string{Joy, Joy, Fear, Anticipation, Joy},
			expected: TrajectoryImproving,
		},
		{
			name:     "empty defaults to stable",
			labels:   nil,
			expected: TrajectoryStable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyTrajectory(tc.labels))
		})
	}
}

func TestHasNegativeStreak(t *testing.T) {
	assert.True(t, HasNegativeStreak([]string{Anger, Sadness, Anger}))
	assert.True(t, HasNegativeStreak([]string{Anger, Joy, Sadness}))
	assert.False(t, HasNegativeStreak([]string{Anger, Joy, Trust}))
	assert.False(t, HasNegativeStreak([]string{Anger, Sadness}))
	assert.False(t, HasNegativeStreak(nil))

	// Only the last three labels vote.
	assert.False(t, HasNegativeStreak([]string{Anger, Anger, Joy, Trust, Joy}))
}

func TestShouldAdjustTone(t *testing.T) {
	testCases := []struct {
		name           string
		emotion        string
		score          float64
		expectAdjust   bool
		expectContains string
	}{
		{
			name:           "low confidence keeps neutral tone",
			emotion:        Anger,
			score:          0.5,
			expectAdjust:   false,
			expectContains: "neutral",
		},
		{
			name:           "negative emotion asks for empathy",
			emotion:        Sadness,
			score:          0.8,
			expectAdjust:   true,
			expectContains: "empathetic",
		},
		{
			name:           "positive emotion asks for enthusiasm",
			emotion:        Joy,
			score:          0.9,
			expectAdjust:   true,
			expectContains: "enthusiastic",
		},
		{
			name:           "neutral emotion keeps informative tone",
			emotion:        Surprise,
			score:          0.7,
			expectAdjust:   false,
			expectContains: "informative",
		},
		{
			name:           "category name works directly",
			emotion:        "negative",
			score:          0.75,
			expectAdjust:   true,
			expectContains: "empathetic",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ShouldAdjustTone(tc.emotion, tc.score)
			assert.Equal(t, tc.expectAdjust, result.Adjust)
			assert.Contains(t, result.Recommendation, tc.expectContains)
		})
	}
}

func TestContextSummaryEmptyWindow(t *testing.T) {
	assert.Equal(t, "No recent emotional context available.", ContextSummary(Window{}))
}

func TestContextSummaryConfidencePhrases(t *testing.T) {
	testCases := []struct {
		score    float64
		expected string
	}{
		{0.9, "very clearly"},
		{0.75, "clearly"},
		{0.62, "somewhat"},
		{0.4, "slightly"},
	}

	for _, tc := range testCases {
		window := Window{User: []TurnEmotion{{Emotion: Joy, Score: tc.score}}}
		summary := ContextSummary(window)
		assert.Contains(t, summary, tc.expected)
		assert.Contains(t, summary, "joyful")
	}
}

func TestContextSummaryMixedEmotion(t *testing.T) {
	window := Window{
		User: []TurnEmotion{{
			Emotion:   Joy,
			Score:     0.8,
			IsMixed:   true,
			Secondary: Sadness,
		}},
	}

	summary := ContextSummary(window)
	assert.Contains(t, summary, "mixed emotions - primarily joy with elements of sadness")
}

func TestContextSummaryDecliningShift(t *testing.T) {
	window := Window{
		User: []TurnEmotion{
			{Emotion: Joy, Score: 0.8},
			{Emotion: Pessimism, Score: 0.7},
			{Emotion: Anger, Score: 0.9},
		},
	}

	summary := ContextSummary(window)
	assert.Contains(t, summary, "declining")
	assert.Contains(t, summary, "joy -> pessimism -> anger")
}

func TestContextSummaryBotSentence(t *testing.T) {
	window := Window{
		User: []TurnEmotion{{Emotion: Trust, Score: 0.7}},
		Bot:  []TurnEmotion{{Emotion: Joy, Score: 0.6}},
	}

	summary := ContextSummary(window)
	assert.Contains(t, summary, "upbeat and encouraging")
}

func TestAdaptationGuidanceEmptyWindow(t *testing.T) {
	assert.Empty(t, AdaptationGuidance(Window{}))
}

func TestAdaptationGuidanceAngryUser(t *testing.T) {
	window := Window{
		User: []TurnEmotion{{Emotion: Anger, Score: 0.85}},
	}

	guidance := AdaptationGuidance(window)
	assert.True(t, strings.HasPrefix(guidance, "EMOTIONAL ADAPTATION GUIDANCE:"))
	assert.Contains(t, guidance, "ANGER")
	assert.Contains(t, guidance, "85%")
	assert.Contains(t, guidance, "calm, patient")
}

func TestAdaptationGuidanceAlertOnNegativeStreak(t *testing.T) {
	window := Window{
		User: []TurnEmotion{
			{Emotion: Anger, Score: 0.8},
			{Emotion: Sadness, Score: 0.85},
			{Emotion: Anger, Score: 0.9},
		},
	}

	guidance := AdaptationGuidance(window)
	assert.Contains(t, guidance, "ALERT: Multiple negative emotions")
	assert.Contains(t, guidance, "different type of help")
}

func TestAdaptationGuidanceNoAlertWhenMostlyPositive(t *testing.T) {
	window := Window{
		User: []TurnEmotion{
			{Emotion: Joy, Score: 0.8},
			{Emotion: Anger, Score: 0.7},
			{Emotion: Trust, Score: 0.75},
		},
	}

	guidance := AdaptationGuidance(window)
	assert.NotContains(t, guidance, "ALERT:")
}

func TestAdaptationGuidanceMixedEmotions(t *testing.T) {
	window := Window{
		User: []TurnEmotion{{
			Emotion: Joy,
			Score:   0.7,
			IsMixed: true,
		}},
	}

	guidance := AdaptationGuidance(window)
	assert.Contains(t, guidance, "MIXED EMOTIONS DETECTED")
	assert.Contains(t, guidance, "nuanced response")
}

func TestAdaptationGuidanceTrajectoryNotes(t *testing.T) {
	improving := Window{
		User: []TurnEmotion{
			{Emotion: Fear, Score: 0.7},
			{Emotion: Anticipation, Score: 0.7},
			{Emotion: Joy, Score: 0.8},
		},
	}
	guidance := AdaptationGuidance(improving)
	assert.Contains(t, guidance, "IMPROVING")
	assert.Contains(t, guidance, "acknowledge positive progress")

	declining := Window{
		User: []TurnEmotion{
			{Emotion: Joy, Score: 0.8},
			{Emotion: Pessimism, Score: 0.7},
			{Emotion: Anger, Score: 0.8},
		},
	}
	guidance = AdaptationGuidance(declining)
	assert.Contains(t, guidance, "WARNING: User's mood is declining")
}
