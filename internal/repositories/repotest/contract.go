// Package repotest holds behaviour every repository backend must share. The
// memory store runs it directly and the Mongo repositories run it against a
// container.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/repositories"
)

type Repos struct {
	Users      repositories.UserRepository
	Expenses   repositories.ExpenseRepository
	Categories repositories.CategoryRepository
	OTPs       repositories.OTPRepository
}

var base = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func Run(t *testing.T, repos Repos) {
	t.Run("Users", func(t *testing.T) { testUsers(t, repos) })
	t.Run("ExpenseAppendAndRemove", func(t *testing.T) { testExpenseAppendAndRemove(t, repos) })
	t.Run("ExpenseQueryMatchesPlan", func(t *testing.T) { testExpenseQueryMatchesPlan(t, repos) })
	t.Run("ExpenseQueryIsOwnerScoped", func(t *testing.T) { testExpenseQueryIsOwnerScoped(t, repos) })
	t.Run("ConcurrentAppends", func(t *testing.T) { testConcurrentAppends(t, repos) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, repos) })
	t.Run("OTPs", func(t *testing.T) { testOTPs(t, repos) })
}

// NewUser creates a user with a unique email and no expenses.
func NewUser(t *testing.T, users repositories.UserRepository) *models.User {
	t.Helper()
	id := primitive.NewObjectID()
	u, err := users.Create(context.Background(), &models.User{
		ID:        id,
		Email:     id.Hex() + "@example.com",
		Password:  "hash",
		CreatedAt: base,
	})
	require.NoError(t, err)
	return u
}

func testUsers(t *testing.T, repos Repos) {
	ctx := context.Background()

	before, err := repos.Users.CountAll(ctx)
	require.NoError(t, err)

	name := "user" + primitive.NewObjectID().Hex()
	created, err := repos.Users.Create(ctx, &models.User{
		Username:   name,
		Email:      name + "@example.com",
		Password:   "hash",
		CreatedAt:  base,
		Categories: models.DefaultCategories(base),
	})
	require.NoError(t, err)
	require.False(t, created.ID.IsZero())

	after, err := repos.Users.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	_, err = repos.Users.Create(ctx, &models.User{Email: name + "@example.com", Password: "x"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
	_, err = repos.Users.Create(ctx, &models.User{Username: name, Password: "x"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	byEmail, err := repos.Users.FindByEmail(ctx, name+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Len(t, byEmail.Categories, len(models.DefaultCategories(base)))
	assert.Empty(t, byEmail.Expenses)

	byName, err := repos.Users.FindByUsername(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = repos.Users.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	exists, err := repos.Users.ExistsByEmail(ctx, name+"@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repos.Users.ExistsByUsername(ctx, "nobody"+name)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repos.Users.UpdatePassword(ctx, created.ID, "new-hash"))
	reloaded, err := repos.Users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.Password)
	assert.ErrorIs(t, repos.Users.UpdatePassword(ctx, primitive.NewObjectID(), "x"), repositories.ErrNotFound)

	revoked, err := repos.Users.IsTokenRevoked(ctx, created.ID, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	require.NoError(t, repos.Users.RevokeToken(ctx, created.ID, "jti-1"))
	require.NoError(t, repos.Users.RevokeToken(ctx, created.ID, "jti-1"))
	revoked, err = repos.Users.IsTokenRevoked(ctx, created.ID, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func testExpenseAppendAndRemove(t *testing.T, repos Repos) {
	ctx := context.Background()
	user := NewUser(t, repos.Users)

	expense := models.Expense{ID: "e1", Amount: 12.5, Category: "Food", Description: "lunch", Date: base}
	require.NoError(t, repos.Expenses.Append(ctx, user.ID, expense))
	assert.ErrorIs(t, repos.Expenses.Append(ctx, user.ID, expense), repositories.ErrDuplicate)
	assert.ErrorIs(t, repos.Expenses.Append(ctx, primitive.NewObjectID(), expense), repositories.ErrNotFound)

	got := list(t, repos, user.ID, query.DefaultListParams())
	require.Len(t, got, 1)
	assert.Equal(t, expense, got[0])

	removed, err := repos.Expenses.Remove(ctx, user.ID, "e1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repos.Expenses.Remove(ctx, user.ID, "e1")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent expense is a no-op")

	_, err = repos.Expenses.Remove(ctx, primitive.NewObjectID(), "e1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	assert.Empty(t, list(t, repos, user.ID, query.DefaultListParams()))
}

func testExpenseQueryMatchesPlan(t *testing.T, repos Repos) {
	ctx := context.Background()
	user := NewUser(t, repos.Users)

	var all []models.Expense
	categories := []string{"Food", "Transport", "Housing"}
	for i := 0; i < 25; i++ {
		e := models.Expense{
			ID:       fmt.Sprintf("exp-%02d", i),
			Amount:   float64((i * 7) % 11),
			Category: categories[i%len(categories)],
			Date:     base.Add(time.Duration(i%6) * 24 * time.Hour),
		}
		if i%4 != 0 {
			e.Description = fmt.Sprintf("item %d", i%5)
		}
		require.NoError(t, repos.Expenses.Append(ctx, user.ID, e))
		all = append(all, e)
	}

	// Year one is a valid date and must filter the same way on every backend.
	epoch := models.Expense{ID: "exp-epoch", Amount: 3, Category: "Food", Description: "old", Date: time.Time{}}
	require.NoError(t, repos.Expenses.Append(ctx, user.ID, epoch))
	all = append(all, epoch)

	filters := []query.FilterParams{
		{StartDate: "2024-01-11", MinAmount: "2", Categories: []string{"Food", "Transport"}},
		{EndDate: "2024-01-12", Categories: []string{"Food"}},
		{},
	}

	for _, filter := range filters {
		predicates, err := query.BuildPredicates(filter)
		require.NoError(t, err)

		for _, sortBy := range []string{"date", "amount", "category", "description", "_id"} {
			for _, order := range []string{"asc", "desc"} {
				for page := 1; page <= 3; page++ {
					params := query.ListParams{Page: page, Limit: 4, SortBy: sortBy, Order: order}
					plan, err := query.NewPlan(user.ID, predicates, params)
					require.NoError(t, err)

					got, err := repos.Expenses.Query(ctx, plan)
					require.NoError(t, err)
					want := plan.Apply(all)
					assert.Equal(t, want, got, "filter=%+v sort_by=%s order=%s page=%d", filter, sortBy, order, page)
				}
			}
		}
	}

	predicates, err := query.BuildPredicates(query.FilterParams{EndDate: "2024-01-01"})
	require.NoError(t, err)
	plan, err := query.NewPlan(user.ID, predicates, query.DefaultListParams())
	require.NoError(t, err)
	got, err := repos.Expenses.Query(ctx, plan)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp-epoch", got[0].ID)
}

func testExpenseQueryIsOwnerScoped(t *testing.T, repos Repos) {
	ctx := context.Background()
	alice := NewUser(t, repos.Users)
	bob := NewUser(t, repos.Users)

	require.NoError(t, repos.Expenses.Append(ctx, alice.ID, models.Expense{ID: "shared-id", Amount: 1, Category: "Food", Date: base}))
	require.NoError(t, repos.Expenses.Append(ctx, bob.ID, models.Expense{ID: "shared-id", Amount: 2, Category: "Food", Date: base}))

	got := list(t, repos, bob.ID, query.DefaultListParams())
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Amount)

	removed, err := repos.Expenses.Remove(ctx, bob.ID, "shared-id")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, list(t, repos, alice.ID, query.DefaultListParams()), 1)

	plan, err := query.NewPlan(primitive.NewObjectID(), nil, query.DefaultListParams())
	require.NoError(t, err)
	got, err = repos.Expenses.Query(ctx, plan)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testConcurrentAppends(t *testing.T, repos Repos) {
	ctx := context.Background()
	user := NewUser(t, repos.Users)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repos.Expenses.Append(ctx, user.ID, models.Expense{
				ID: fmt.Sprintf("c-%02d", i), Amount: float64(i), Category: "Food", Date: base,
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := list(t, repos, user.ID, query.ListParams{Page: 1, Limit: query.MaxLimit})
	assert.Len(t, got, n)
}

func testCategories(t *testing.T, repos Repos) {
	ctx := context.Background()
	user := NewUser(t, repos.Users)

	cats, err := repos.Categories.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cats)

	require.NoError(t, repos.Categories.Append(ctx, user.ID, models.Category{Name: "Travel", CreatedAt: base}))
	require.NoError(t, repos.Categories.Append(ctx, user.ID, models.Category{Name: "Gifts", CreatedAt: base}))
	require.NoError(t, repos.Categories.Append(ctx, user.ID, models.Category{Name: "Travel", CreatedAt: base.Add(time.Hour)}))

	cats, err = repos.Categories.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{
		{Name: "Travel", CreatedAt: base},
		{Name: "Gifts", CreatedAt: base},
		{Name: "Travel", CreatedAt: base.Add(time.Hour)},
	}, cats)

	removed, err := repos.Categories.RemoveByName(ctx, user.ID, "Travel")
	require.NoError(t, err)
	assert.True(t, removed, "both Travel entries go in one update")

	removed, err = repos.Categories.RemoveByName(ctx, user.ID, "Travel")
	require.NoError(t, err)
	assert.False(t, removed)

	cats, err = repos.Categories.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Name: "Gifts", CreatedAt: base}}, cats)

	_, err = repos.Categories.List(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repos.Categories.Append(ctx, primitive.NewObjectID(), models.Category{Name: "x"}), repositories.ErrNotFound)
}

func testOTPs(t *testing.T, repos Repos) {
	ctx := context.Background()
	user := NewUser(t, repos.Users)
	now := time.Now().UTC().Truncate(time.Millisecond)

	live, err := repos.OTPs.Create(ctx, &models.OTP{
		UserID: user.ID, OTPCode: "123456", Purpose: "password_reset", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = repos.OTPs.Create(ctx, &models.OTP{
		UserID: user.ID, OTPCode: "654321", Purpose: "password_reset", ExpiresAt: now.Add(-time.Minute), CreatedAt: now,
	})
	require.NoError(t, err)

	found, err := repos.OTPs.FindValid(ctx, user.ID, "123456", "password_reset", now)
	require.NoError(t, err)
	assert.Equal(t, live.ID, found.ID)

	_, err = repos.OTPs.FindValid(ctx, user.ID, "123456", "email_verification", now)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.OTPs.FindValid(ctx, user.ID, "654321", "password_reset", now)
	assert.ErrorIs(t, err, repositories.ErrNotFound, "expired codes are never valid")

	require.NoError(t, repos.OTPs.MarkAsUsed(ctx, live.ID))
	assert.ErrorIs(t, repos.OTPs.MarkAsUsed(ctx, live.ID), repositories.ErrNotFound)
	_, err = repos.OTPs.FindValid(ctx, user.ID, "123456", "password_reset", now)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// An hour from now both codes have lapsed.
	deleted, err := repos.OTPs.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}

func list(t *testing.T, repos Repos, userID primitive.ObjectID, params query.ListParams) []models.Expense {
	t.Helper()
	plan, err := query.NewPlan(userID, nil, params)
	require.NoError(t, err)
	got, err := repos.Expenses.Query(context.Background(), plan)
	require.NoError(t, err)
	return got
}
