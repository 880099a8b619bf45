package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/apperror"
	"spendwise/internal/metrics"
	"spendwise/internal/models"
	"spendwise/internal/repositories"
)

const suggestionRetries = 3

type AgentService struct {
	categoryRepo repositories.CategoryRepository
	llm          llms.Model
}

// NewAgentService accepts a nil model; suggestions then fail with an
// external service error.
func NewAgentService(categoryRepo repositories.CategoryRepository, llm llms.Model) *AgentService {
	return &AgentService{categoryRepo: categoryRepo, llm: llm}
}

// SuggestCategory asks the model to file an expense under one of the user's
// own categories. Answers naming any other category are retried.
func (s *AgentService) SuggestCategory(ctx context.Context, userID primitive.ObjectID, description string, amount float64) (*models.CategorySuggestion, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperror.NewValidationError("description is required", nil)
	}
	if s.llm == nil {
		metrics.CategorySuggestionsTotal.WithLabelValues("unavailable").Inc()
		return nil, apperror.NewExternalServiceError("category suggestions are not configured", nil)
	}

	categories, err := s.categoryRepo.List(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to fetch categories")
	}
	if len(categories) == 0 {
		return nil, apperror.NewValidationError("no categories to choose from", nil)
	}

	known := make(map[string]string, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		key := strings.ToLower(c.Name)
		if _, seen := known[key]; seen {
			continue
		}
		known[key] = c.Name
		names = append(names, c.Name)
	}

	prompt := fmt.Sprintf(
		"You categorize personal expenses. Choose exactly one category for the expense below. "+
			"Answer with the category name only, chosen from this list: %s\n\nDescription: %s\nAmount: %.2f",
		strings.Join(names, ", "), description, amount,
	)

	for i := 0; i < suggestionRetries; i++ {
		answer, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt)
		if err != nil {
			metrics.CategorySuggestionsTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Int("retry", i+1).Msg("Failed to generate category suggestion")
			return nil, apperror.NewExternalServiceError("failed to generate suggestion", err)
		}

		cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(answer), "`\"'."))
		if name, ok := known[cleaned]; ok {
			metrics.CategorySuggestionsTotal.WithLabelValues("success").Inc()
			log.Debug().Str("user_id", userID.Hex()).Str("category", name).Msg("Category suggested")
			return &models.CategorySuggestion{Category: name}, nil
		}
		log.Warn().Int("retry", i+1).Str("raw_response", answer).Msg("LLM suggested an unknown category. Retrying...")
	}

	metrics.CategorySuggestionsTotal.WithLabelValues("error").Inc()
	return nil, apperror.NewExternalServiceError("model did not suggest a known category", nil)
}
