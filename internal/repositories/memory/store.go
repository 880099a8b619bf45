// Package memory keeps users, their expenses and categories, and OTP codes in
// process memory. It backs DATA_BACKEND=memory and the service tests.
package memory

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
	"spendwise/internal/repositories"
)

// Store is safe for concurrent use. Every mutation holds the write lock and
// every read returns copies, so callers never share a slice with the store.
type Store struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
	otps  map[primitive.ObjectID]*models.OTP
}

func NewStore() *Store {
	return &Store{
		users: make(map[primitive.ObjectID]*models.User),
		otps:  make(map[primitive.ObjectID]*models.OTP),
	}
}

func (s *Store) Users() repositories.UserRepository { return &userRepository{s: s} }

func (s *Store) Expenses() repositories.ExpenseRepository { return &expenseRepository{s: s} }

func (s *Store) Categories() repositories.CategoryRepository { return &categoryRepository{s: s} }

func (s *Store) OTPs() repositories.OTPRepository { return &otpRepository{s: s} }

// user must be called with the lock held.
func (s *Store) user(userID primitive.ObjectID) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.RevokedTokens = append([]string{}, u.RevokedTokens...)
	c.Categories = append([]models.Category{}, u.Categories...)
	// Profile reads never carry the expense list, matching the Mongo projection.
	c.Expenses = nil
	return &c
}
