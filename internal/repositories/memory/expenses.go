package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/repositories"
)

type expenseRepository struct {
	s *Store
}

// Query snapshots the user's expenses and evaluates the plan outside the lock.
func (r *expenseRepository) Query(ctx context.Context, plan *query.Plan) ([]models.Expense, error) {
	r.s.mu.RLock()
	u, ok := r.s.users[plan.UserID]
	var snapshot []models.Expense
	if ok {
		snapshot = append([]models.Expense{}, u.Expenses...)
	}
	r.s.mu.RUnlock()

	if !ok {
		return []models.Expense{}, nil
	}
	return plan.Apply(snapshot), nil
}

func (r *expenseRepository) Append(ctx context.Context, userID primitive.ObjectID, expense models.Expense) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return err
	}
	for _, e := range u.Expenses {
		if e.ID == expense.ID {
			return repositories.ErrDuplicate
		}
	}
	u.Expenses = append(u.Expenses, expense)
	return nil
}

func (r *expenseRepository) Remove(ctx context.Context, userID primitive.ObjectID, expenseID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return false, err
	}
	kept := u.Expenses[:0:0]
	for _, e := range u.Expenses {
		if e.ID != expenseID {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(u.Expenses)
	u.Expenses = kept
	return removed, nil
}
