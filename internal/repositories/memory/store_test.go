package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/repositories/repotest"
)

func TestStoreContract(t *testing.T) {
	s := NewStore()
	repotest.Run(t, repotest.Repos{
		Users:      s.Users(),
		Expenses:   s.Expenses(),
		Categories: s.Categories(),
		OTPs:       s.OTPs(),
	})
}

func TestQueryResultDoesNotAliasStore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := repotest.NewUser(t, s.Users())
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Expenses().Append(ctx, user.ID, models.Expense{ID: "a", Amount: 1, Category: "Food", Date: date}))

	plan, err := query.NewPlan(user.ID, nil, query.DefaultListParams())
	require.NoError(t, err)
	got, err := s.Expenses().Query(ctx, plan)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Amount = 999

	again, err := s.Expenses().Query(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Amount)
}

func TestCreateDoesNotRetainCallerSlices(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	cats := []models.Category{{Name: "Food"}}
	u, err := s.Users().Create(ctx, &models.User{Email: "x@example.com", Categories: cats})
	require.NoError(t, err)

	cats[0].Name = "Changed"
	stored, err := s.Categories().List(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", stored[0].Name)
}
