package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/apperror"
	"spendwise/internal/repositories/memory"
)

func TestSuggestCategory(t *testing.T) {
	store := memory.NewStore()
	user := registerUser(t, store, "alice")
	llm := &fakeLLM{answers: []string{"Groceries", "  food.\n"}}
	svc := NewAgentService(store.Categories(), llm)

	got, err := svc.SuggestCategory(context.Background(), user.ID, "weekly supermarket run", 82.4)
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Category)
	require.Len(t, llm.prompts, 2, "an unknown category is retried")
	assert.Contains(t, llm.prompts[0], "weekly supermarket run")
	assert.Contains(t, llm.prompts[0], "Transport")
}

func TestSuggestCategoryFailures(t *testing.T) {
	store := memory.NewStore()
	user := registerUser(t, store, "alice")
	ctx := context.Background()

	_, err := NewAgentService(store.Categories(), nil).SuggestCategory(ctx, user.ID, "taxi", 10)
	assert.True(t, apperror.Is(err, apperror.ExternalServiceError))

	_, err = NewAgentService(store.Categories(), &fakeLLM{err: errors.New("quota")}).SuggestCategory(ctx, user.ID, "taxi", 10)
	assert.True(t, apperror.Is(err, apperror.ExternalServiceError))

	wrong := &fakeLLM{answers: []string{"Yachts", "Yachts", "Yachts"}}
	_, err = NewAgentService(store.Categories(), wrong).SuggestCategory(ctx, user.ID, "taxi", 10)
	assert.True(t, apperror.Is(err, apperror.ExternalServiceError))

	_, err = NewAgentService(store.Categories(), &fakeLLM{}).SuggestCategory(ctx, user.ID, " ", 10)
	assert.True(t, apperror.Is(err, apperror.ValidationError))
}
