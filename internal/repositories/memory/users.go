package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
	"spendwise/internal/repositories"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if user.Username != "" && existing.Username == user.Username {
			return nil, repositories.ErrDuplicate
		}
		if user.Email != "" && existing.Email == user.Email {
			return nil, repositories.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, taken := r.s.users[user.ID]; taken {
		return nil, repositories.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	stored.Expenses = append([]models.Expense{}, user.Expenses...)
	stored.Categories = append([]models.Category{}, user.Categories...)
	stored.RevokedTokens = append([]string{}, user.RevokedTokens...)
	r.s.users[stored.ID] = &stored
	return user, nil
}

func (r *userRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == userID })
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return err
	}
	u.Password = passwordHash
	return nil
}

func (r *userRepository) RevokeToken(ctx context.Context, userID primitive.ObjectID, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, err := r.s.user(userID)
	if err != nil {
		return err
	}
	for _, id := range u.RevokedTokens {
		if id == tokenID {
			return nil
		}
	}
	u.RevokedTokens = append(u.RevokedTokens, tokenID)
	return nil
}

func (r *userRepository) IsTokenRevoked(ctx context.Context, userID primitive.ObjectID, tokenID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok {
		return false, nil
	}
	for _, id := range u.RevokedTokens {
		if id == tokenID {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}
