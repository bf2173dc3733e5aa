package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/synaptiq/membrain/pkg/emotion"
	"github.com/synaptiq/membrain/pkg/log"
)

var (
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
)

// classificationPrompt instructs the model to score every label in the fixed
// 11-label set. Scores are independent per label, not a distribution.
const classificationPrompt = `You are an emotion classification service. Score the text against each of these emotion labels independently on a 0.0-1.0 scale: joy, love, optimism, trust, anticipation, anger, disgust, fear, sadness, pessimism, surprise.
Respond with ONLY a JSON object mapping every label to its score, e.g. {"joy": 0.8, "love": 0.1, ...}. Include all 11 labels.`

// Config holds the configuration for the OpenAI emotion classifier adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the chat model used for classification, e.g., "gpt-4o-mini".
	Model string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIClassifier implements the emotion.Classifier interface using a chat
// model with a strict-JSON scoring instruction.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier creates a new OpenAI classifier adapter.
func NewOpenAIClassifier(config Config) (*OpenAIClassifier, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Classify implements the emotion.Classifier interface.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classificationPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		log.Error("Emotion classification request failed", "error", err, "model", c.model)
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	var parsed map[string]float64
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		log.Error("Failed to parse classification response", "error", err)
		return nil, err
	}

	scores := make([]emotion.Score, 0, len(emotion.Labels))
	for _, label := range emotion.Labels {
		scores = append(scores, emotion.Score{Label: label, Score: parsed[label]})
	}

	log.Debug("Classified emotion", "labels", len(scores))
	return scores, nil
}
