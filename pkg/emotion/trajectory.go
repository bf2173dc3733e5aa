package emotion

import (
	"fmt"
	"strings"
)

// Trajectory is a qualitative label for the direction of recent user emotion.
type Trajectory string

// Trajectory classifications.
const (
	TrajectoryStable    Trajectory = "stable"
	TrajectoryImproving Trajectory = "improving"
	TrajectoryDeclining Trajectory = "declining"
	TrajectoryVolatile  Trajectory = "volatile"
)

// trajectoryWindow is how many recent labeled turns the classifier inspects.
const trajectoryWindow = 3

// TurnEmotion is the emotion tag of a single conversation turn.
type TurnEmotion struct {
	// Emotion is the primary label for the turn.
	Emotion string

	// Score is the classifier confidence for the label.
	Score float64

	// IsMixed reports mixed emotions detected at ingestion.
	IsMixed bool

	// MixedContext describes the mix when IsMixed is set.
	MixedContext string

	// Secondary is the secondary label when mixed.
	Secondary string
}

// Window is the emotion view over recent conversation turns, oldest first.
type Window struct {
	// User holds the user-side emotion tags.
	User []TurnEmotion

	// Bot holds the assistant-side emotion tags.
	Bot []TurnEmotion
}

// ClassifyTrajectory classifies the direction of the last three labeled
// emotions. Fewer than three labels defaults to stable.
func ClassifyTrajectory(labels []string) Trajectory {
	if len(labels) < trajectoryWindow {
		return TrajectoryStable
	}

	recent := labels[len(labels)-trajectoryWindow:]
	first := CategoryOf(recent[0])
	last := CategoryOf(recent[len(recent)-1])

	switch {
	case first == Negative && last == Positive:
		return TrajectoryImproving
	case first == Positive && last == Negative:
		return TrajectoryDeclining
	case distinctCount(recent) > 2:
		return TrajectoryVolatile
	default:
		return TrajectoryStable
	}
}

// HasNegativeStreak reports whether at least two of the last three labeled
// turns carry a negative-category emotion. Simple majority vote.
func HasNegativeStreak(labels []string) bool {
	recent := labels
	if len(recent) > trajectoryWindow {
		recent = recent[len(recent)-trajectoryWindow:]
	}
	if len(recent) < trajectoryWindow {
		return false
	}

	negatives := 0
	for _, label := range recent {
		if CategoryOf(label) == Negative {
			negatives++
		}
	}
	return negatives >= 2
}

// ToneRecommendation is the result of the tone adjustment lookup.
type ToneRecommendation struct {
	// Adjust reports whether the consuming system should change tone.
	Adjust bool

	// Recommendation is the suggested tone in plain language.
	Recommendation string

	// Reason explains the recommendation.
	Reason string
}

// ShouldAdjustTone maps a detected user emotion and its confidence to a tone
// recommendation. Accepts either a specific label or a category name.
func ShouldAdjustTone(userEmotion string, score float64) ToneRecommendation {
	if score < 0.6 {
		return ToneRecommendation{
			Adjust:         false,
			Recommendation: "maintain neutral tone",
			Reason:         "low confidence in emotion detection",
		}
	}

	switch CategoryOf(userEmotion) {
	case Negative:
		return ToneRecommendation{
			Adjust:         true,
			Recommendation: "be more empathetic and supportive",
			Reason:         "user appears frustrated or upset",
		}
	case Positive:
		return ToneRecommendation{
			Adjust:         true,
			Recommendation: "be enthusiastic and engaging",
			Reason:         "user appears happy and excited",
		}
	default:
		return ToneRecommendation{
			Adjust:         false,
			Recommendation: "maintain informative and helpful tone",
			Reason:         "user appears calm and factual",
		}
	}
}

// confidencePhrase converts a classifier score to natural language.
func confidencePhrase(score float64) string {
	switch {
	case score >= 0.85:
		return "very clearly"
	case score >= 0.70:
		return "clearly"
	case score >= 0.60:
		return "somewhat"
	default:
		return "slightly"
	}
}

// summaryTemplate returns the per-emotion context sentence for all 11 labels.
func summaryTemplate(emotion, confidence string) string {
	switch emotion {
	case Joy:
		return fmt.Sprintf("The user is %s feeling joyful and happy", confidence)
	case Love:
		return fmt.Sprintf("The user is %s expressing love, affection, or deep appreciation", confidence)
	case Optimism:
		return fmt.Sprintf("The user is %s feeling optimistic and hopeful about the future", confidence)
	case Trust:
		return fmt.Sprintf("The user is %s showing trust and confidence", confidence)
	case Anticipation:
		return fmt.Sprintf("The user is %s feeling anticipation and excitement", confidence)
	case Anger:
		return fmt.Sprintf("The user is %s feeling angry or frustrated", confidence)
	case Disgust:
		return fmt.Sprintf("The user is %s expressing disgust or strong disapproval", confidence)
	case Fear:
		return fmt.Sprintf("The user is %s feeling afraid or anxious", confidence)
	case Sadness:
		return fmt.Sprintf("The user is %s feeling sad or disappointed", confidence)
	case Pessimism:
		return fmt.Sprintf("The user is %s feeling pessimistic or discouraged", confidence)
	case Surprise:
		return fmt.Sprintf("The user is %s feeling surprised or caught off guard", confidence)
	default:
		return fmt.Sprintf("The user appears %s", emotion)
	}
}

// ContextSummary renders a human-readable emotional summary of the window.
// The output is plain text meant to be concatenated into a larger prompt
// context by the caller.
func ContextSummary(w Window) string {
	if len(w.User) == 0 && len(w.Bot) == 0 {
		return "No recent emotional context available."
	}

	var parts []string

	if len(w.User) > 0 {
		latest := w.User[len(w.User)-1]
		confidence := confidencePhrase(latest.Score)

		if latest.IsMixed {
			if latest.Secondary != "" {
				parts = append(parts, fmt.Sprintf(
					"The user is expressing %s mixed emotions - primarily %s with elements of %s",
					confidence, latest.Emotion, latest.Secondary))
			} else {
				parts = append(parts, fmt.Sprintf(
					"The user is expressing %s complex emotions with %s being most prominent",
					confidence, latest.Emotion))
			}
		} else {
			parts = append(parts, summaryTemplate(latest.Emotion, confidence))
		}

		if shift := describeShift(userLabels(w)); shift != "" {
			parts = append(parts, shift)
		}
	}

	if len(w.Bot) > 0 {
		latest := w.Bot[len(w.Bot)-1]
		switch CategoryOf(latest.Emotion) {
		case Positive:
			parts = append(parts, "Your recent responses have been upbeat and encouraging")
		case Negative:
			parts = append(parts, "Your recent responses have been more serious or cautionary")
		default:
			parts = append(parts, "Your recent responses have been informative and professional")
		}
	}

	if len(parts) == 0 {
		return "No strong emotional signals detected in recent conversation."
	}
	return strings.Join(parts, ". ") + "."
}

// describeShift renders the recent emotion sequence when it actually moved.
func describeShift(labels []string) string {
	if len(labels) < 2 || distinctCount(labels) < 2 {
		return ""
	}

	sequence := labels
	if len(sequence) > trajectoryWindow {
		sequence = sequence[len(sequence)-trajectoryWindow:]
	}
	arrows := strings.Join(sequence, " -> ")

	switch ClassifyTrajectory(labels) {
	case TrajectoryImproving:
		return "Their mood has been improving: " + arrows
	case TrajectoryDeclining:
		return "Their mood appears to be declining: " + arrows + " - be extra careful and supportive"
	case TrajectoryVolatile:
		return "Their emotions have shifted through: " + arrows
	default:
		return "Recent emotional state: " + arrows
	}
}

// AdaptationGuidance renders detailed tone-adaptation instructions for the
// consuming prompt assembler. Returns an empty string when the window has no
// labeled user turns.
func AdaptationGuidance(w Window) string {
	if len(w.User) == 0 {
		return ""
	}

	latest := w.User[len(w.User)-1]
	labels := userLabels(w)
	trajectory := ClassifyTrajectory(labels)

	var lines []string
	lines = append(lines, "EMOTIONAL ADAPTATION GUIDANCE:")

	if latest.IsMixed {
		lines = append(lines, fmt.Sprintf("- User's current state: %s with MIXED EMOTIONS (confidence: %.0f%%)",
			strings.ToUpper(latest.Emotion), latest.Score*100))
		lines = append(lines, "- MIXED EMOTIONS DETECTED: User expressing conflicting feelings")
	} else {
		lines = append(lines, fmt.Sprintf("- User's current state: %s (confidence: %.0f%%)",
			strings.ToUpper(latest.Emotion), latest.Score*100))
	}

	lines = append(lines, trajectoryLine(trajectory, labels))

	if latest.IsMixed {
		lines = append(lines, mixedGuidance()...)
	} else {
		lines = append(lines, emotionGuidance(latest.Emotion)...)
	}

	switch trajectory {
	case TrajectoryImproving:
		lines = append(lines, "- NOTE: User's mood is improving - acknowledge positive progress")
	case TrajectoryDeclining:
		lines = append(lines, "- WARNING: User's mood is declining - be extra supportive and patient")
	case TrajectoryVolatile:
		lines = append(lines, "- NOTE: Emotional state is fluctuating - adapt tone carefully")
	}

	if HasNegativeStreak(labels) {
		lines = append(lines, "- ALERT: Multiple negative emotions detected in recent messages")
		lines = append(lines, "- Consider: Asking if they need different type of help or support")
	}

	return strings.Join(lines, "\n")
}

// trajectoryLine renders the trajectory with the actual emotion progression.
func trajectoryLine(trajectory Trajectory, labels []string) string {
	sequence := labels
	if len(sequence) > trajectoryWindow {
		sequence = sequence[len(sequence)-trajectoryWindow:]
	}
	if len(sequence) >= 2 {
		return fmt.Sprintf("- Emotional trajectory: %s (%s)",
			strings.ToUpper(string(trajectory)), strings.Join(sequence, " -> "))
	}
	return fmt.Sprintf("- Emotional trajectory: %s", strings.ToUpper(string(trajectory)))
}

// mixedGuidance is the instruction block for mixed emotional states.
func mixedGuidance() []string {
	return []string{
		"- PRIORITY: User has complex, mixed feelings - requires nuanced response",
		"- Response style: Acknowledge both aspects of their emotions",
		"- Tone: Understanding, balanced, non-dismissive",
		"- Actions: Validate all feelings, help clarify emotions, offer balanced perspective",
		"- Avoid: Oversimplifying, focusing on only one emotion, being too cheerful or pessimistic",
	}
}

// emotionGuidance is the per-emotion instruction block for all 11 labels.
func emotionGuidance(emotion string) []string {
	switch emotion {
	case Joy:
		return []string{
			"- User is feeling joyful and happy",
			"- Response style: Match their positive energy",
			"- Tone: Upbeat, warm, celebratory",
			"- Actions: Share in their happiness, build on positive momentum",
		}
	case Love:
		return []string{
			"- User is expressing love, affection, or deep appreciation",
			"- Response style: Be warm and genuine",
			"- Tone: Kind, appreciative, heartfelt",
			"- Actions: Acknowledge their feelings, respond with warmth",
		}
	case Optimism:
		return []string{
			"- User is feeling optimistic and hopeful",
			"- Response style: Support their positive outlook",
			"- Tone: Encouraging, forward-looking",
			"- Actions: Reinforce their optimism, discuss positive possibilities",
		}
	case Trust:
		return []string{
			"- User is showing trust and confidence",
			"- Response style: Honor their trust with reliability",
			"- Tone: Professional, dependable, honest",
			"- Actions: Provide accurate information, be transparent",
		}
	case Anticipation:
		return []string{
			"- User is feeling anticipation and excitement",
			"- Response style: Match their forward-looking energy",
			"- Tone: Engaging, enthusiastic about future",
			"- Actions: Help them prepare, discuss what's coming",
		}
	case Anger:
		return []string{
			"- PRIORITY: User is feeling angry or frustrated",
			"- Response style: Be calm, patient, and understanding",
			"- Tone: Measured, empathetic, non-defensive",
			"- Actions: Acknowledge their frustration, focus on solutions",
			"- Avoid: Being dismissive, defensive, or argumentative",
		}
	case Disgust:
		return []string{
			"- User is expressing disgust or strong disapproval",
			"- Response style: Validate their concerns without judgment",
			"- Tone: Understanding, respectful",
			"- Actions: Address the source of disapproval professionally",
		}
	case Fear:
		return []string{
			"- PRIORITY: User is feeling afraid or anxious",
			"- Response style: Be reassuring and supportive",
			"- Tone: Calm, steady, comforting",
			"- Actions: Provide clear information, reduce uncertainty",
			"- Avoid: Minimizing their concerns or adding worry",
		}
	case Sadness:
		return []string{
			"- User is feeling sad or disappointed",
			"- Response style: Be empathetic and compassionate",
			"- Tone: Gentle, understanding, supportive",
			"- Actions: Acknowledge their feelings, offer comfort",
			"- Avoid: Being overly cheerful or dismissive",
		}
	case Pessimism:
		return []string{
			"- User is feeling pessimistic or discouraged",
			"- Response style: Be supportive without toxic positivity",
			"- Tone: Understanding, gently encouraging",
			"- Actions: Acknowledge difficulties, offer realistic perspective",
		}
	case Surprise:
		return []string{
			"- User is feeling surprised or caught off guard",
			"- Response style: Help them process the unexpected",
			"- Tone: Clear, informative",
			"- Actions: Provide context, clarify situation",
		}
	default:
		return []string{fmt.Sprintf("- User appears %s", emotion)}
	}
}

// userLabels extracts the user emotion labels from a window, oldest first.
func userLabels(w Window) []string {
	labels := make([]string, 0, len(w.User))
	for _, turn := range w.User {
		labels = append(labels, turn.Emotion)
	}
	return labels
}

// distinctCount counts distinct strings in a slice.
func distinctCount(values []string) int {
	seen := map[string]bool{}
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}
