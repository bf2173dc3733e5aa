package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/nlp"
)

var (
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
)

// extractionPrompt instructs the model to return strict JSON. Categories follow
// the usual NER label conventions (PERSON, ORG, GPE, PRODUCT, EVENT, ...).
const extractionPrompt = `You are a text analysis service. Analyze the text and respond with ONLY a JSON object, no prose, with this exact shape:
{
  "entities": {"PERSON": ["..."], "ORG": ["..."], "GPE": ["..."], "PRODUCT": ["..."], "EVENT": ["..."]},
  "keywords": ["lowercase lemmas of salient nouns/verbs, most frequent first, max 10"],
  "topics": ["short noun-phrase themes, lowercase, max 5"],
  "intent": "question|statement|command|expression"
}
Omit entity categories with no values. Keywords must exclude stop words.`

// Config holds the configuration for the OpenAI analyzer adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the chat model used for extraction, e.g., "gpt-4o-mini".
	Model string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIAnalyzer implements the nlp.Analyzer interface using a chat model
// with a strict-JSON extraction instruction.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates a new OpenAI analyzer adapter.
func NewOpenAIAnalyzer(config Config) (*OpenAIAnalyzer, error) {
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

	return &OpenAIAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Analyze implements the nlp.Analyzer interface.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (nlp.Analysis, error) {
	request := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	response, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		log.Error("Text analysis request failed", "error", err, "model", a.model)
		return nlp.Analysis{}, err
	}
	if len(response.Choices) == 0 {
		return nlp.Analysis{}, errors.New("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	var parsed struct {
		Entities map[string][]string `json:"entities"`
		Keywords []string            `json:"keywords"`
		Topics   []string            `json:"topics"`
		Intent   string              `json:"intent"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		log.Error("Failed to parse analysis response", "error", err)
		return nlp.Analysis{}, err
	}

	analysis := nlp.Analysis{
		Entities: parsed.Entities,
		Keywords: parsed.Keywords,
		Topics:   parsed.Topics,
		Intent:   parsed.Intent,
	}
	if analysis.Entities == nil {
		analysis.Entities = map[string][]string{}
	}

	log.Debug("Analyzed text",
		"entities", analysis.EntityCount(),
		"keywords", len(analysis.Keywords),
		"topics", len(analysis.Topics),
		"intent", analysis.Intent)

	return analysis, nil
}
