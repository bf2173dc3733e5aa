// Package emotion implements the emotional layer of the memory engine: the
// fixed 11-label emotion model, mixed-emotion interpretation of raw classifier
// scores, and the trajectory engine that turns recent emotion-tagged turns
// into tone-adaptation guidance.
package emotion

import (
	"context"
	"sort"
	"strings"
)

// The fixed 11-label emotion set.
const (
	Joy          = "joy"
	Love         = "love"
	Optimism     = "optimism"
	Trust        = "trust"
	Anticipation = "anticipation"
	Anger        = "anger"
	Disgust      = "disgust"
	Fear         = "fear"
	Sadness      = "sadness"
	Pessimism    = "pessimism"
	Surprise     = "surprise"
)

// Category is the coarse polarity of an emotion label.
type Category string

// Emotion categories.
const (
	Positive Category = "positive"
	Negative Category = "negative"
	Neutral  Category = "neutral"
)

// Labels lists all 11 emotion labels.
var Labels = []string{
	Joy, Love, Optimism, Trust, Anticipation,
	Anger, Disgust, Fear, Sadness, Pessimism,
	Surprise,
}

var positiveLabels = map[string]bool{
	Joy: true, Love: true, Optimism: true, Trust: true, Anticipation: true,
}

var negativeLabels = map[string]bool{
	Anger: true, Disgust: true, Fear: true, Sadness: true, Pessimism: true,
}

// CategoryOf returns the coarse category for a label. Category names
// themselves pass through, so callers can hand in either granularity.
func CategoryOf(label string) Category {
	switch {
	case positiveLabels[label]:
		return Positive
	case negativeLabels[label]:
		return Negative
	case label == string(Positive):
		return Positive
	case label == string(Negative):
		return Negative
	default:
		return Neutral
	}
}

// Score is a single label/score pair from the classifier. Scores are
// independent per label and do not sum to 1.
type Score struct {
	Label string
	Score float64
}

// Classifier is the interface for emotion classification adapters. Classify
// must return a score for every label in Labels.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
}

// significanceThreshold is the minimum score for a label to participate in
// mixed-emotion detection.
const significanceThreshold = 0.3

// contrastMarkers are linguistic signals of conflicting feelings in one
// message.
var contrastMarkers = []string{
	"but", "however", "although", "though", "yet",
	"on the other hand", "at the same time", "mixed feelings",
}

// Classification is the interpreted result for one message.
type Classification struct {
	// Primary is the highest-scoring label.
	Primary string

	// Score is the primary label's score.
	Score float64

	// Category is the coarse category of the primary label.
	Category Category

	// Secondary is the second significant label when emotions are mixed.
	Secondary string

	// SecondaryScore is the secondary label's score.
	SecondaryScore float64

	// IsMixed reports significant scores in both polarities, or contrast
	// markers alongside multiple significant labels.
	IsMixed bool

	// MixedContext is a short description of the mix, empty when not mixed.
	MixedContext string

	// Significant lists labels above the significance threshold, strongest
	// first.
	Significant []string
}

// Interpret converts raw per-label scores into a Classification, applying
// mixed-emotion detection against the message text.
func Interpret(scores []Score, text string) Classification {
	sorted := make([]Score, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	result := Classification{}
	if len(sorted) == 0 {
		result.Primary = Surprise
		result.Category = Neutral
		result.Significant = []string{Surprise}
		return result
	}

	result.Primary = strings.ToLower(sorted[0].Label)
	result.Score = sorted[0].Score
	result.Category = CategoryOf(result.Primary)

	var significant []Score
	for _, s := range sorted {
		if s.Score > significanceThreshold {
			significant = append(significant, s)
		}
	}
	for _, s := range significant {
		result.Significant = append(result.Significant, strings.ToLower(s.Label))
	}
	if len(result.Significant) == 0 {
		result.Significant = []string{result.Primary}
	}

	// Mixed when the top significant labels span both polarities.
	spansBoth := false
	if len(significant) > 1 {
		categories := map[Category]bool{}
		top := significant
		if len(top) > 3 {
			top = top[:3]
		}
		for _, s := range top {
			categories[CategoryOf(strings.ToLower(s.Label))] = true
		}
		spansBoth = categories[Positive] && categories[Negative]
	}

	hasContrast := containsContrastMarker(text)

	if spansBoth {
		result.IsMixed = true
		result.Secondary = strings.ToLower(significant[1].Label)
		result.SecondaryScore = significant[1].Score
		result.MixedContext = "Expressing both " + result.Primary + " and " + result.Secondary
	} else if hasContrast && len(significant) > 1 {
		result.IsMixed = true
		result.MixedContext = "Contains contrasting emotional indicators"
	}

	return result
}

// containsContrastMarker reports whether the text carries a linguistic
// contrast signal.
func containsContrastMarker(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range contrastMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
