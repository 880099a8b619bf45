package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
	"spendwise/internal/repositories/memory"
)

func TestCategoryLifecycle(t *testing.T) {
	store := memory.NewStore()
	user := registerUser(t, store, "alice")
	svc := NewCategoryService(store.Categories()).(*categoryServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	cats, err := svc.GetCategories(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.DefaultCategories(fixedNow)), "new users start with the default set")

	added, err := svc.AddCategory(ctx, user.ID, "Food")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, added.CreatedAt)

	require.NoError(t, svc.DeleteCategory(ctx, user.ID, "Food"))
	cats, err = svc.GetCategories(ctx, user.ID)
	require.NoError(t, err)
	for _, c := range cats {
		assert.NotEqual(t, "Food", c.Name, "every category with the name is removed")
	}

	require.NoError(t, svc.DeleteCategory(ctx, user.ID, "Food"))
}

func TestCategoryValidation(t *testing.T) {
	store := memory.NewStore()
	user := registerUser(t, store, "alice")
	svc := NewCategoryService(store.Categories())

	_, err := svc.AddCategory(context.Background(), user.ID, " ")
	assert.True(t, apperror.Is(err, apperror.ValidationError))
	assert.True(t, apperror.Is(svc.DeleteCategory(context.Background(), user.ID, ""), apperror.ValidationError))
}
