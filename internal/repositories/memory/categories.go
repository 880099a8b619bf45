package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
)

type categoryRepository struct {
	s *Store
}

func (r *categoryRepository) List(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, err := r.s.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]models.Category{}, u.Categories...), nil
}

func (r *categoryRepository) Append(ctx context.Context, userID primitive.ObjectID, category models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return err
	}
	u.Categories = append(u.Categories, category)
	return nil
}

func (r *categoryRepository) RemoveByName(ctx context.Context, userID primitive.ObjectID, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return false, err
	}
	kept := make([]models.Category, 0, len(u.Categories))
	for _, c := range u.Categories {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	removed := len(kept) < len(u.Categories)
	u.Categories = kept
	return removed, nil
}
