package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

var ErrMissingAPIKey = errors.New("missing api key")

// NewLLM builds the Google AI model used for category suggestions.
func NewLLM(ctx context.Context, apiKey, model string) (llms.Model, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI LLM: %w", err)
	}
	return llm, nil
}
