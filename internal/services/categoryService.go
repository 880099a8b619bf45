package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/apperror"
	"spendwise/internal/metrics"
	"spendwise/internal/models"
	"spendwise/internal/repositories"
)

// CategoryService defines the interface for category-related business logic.
type CategoryService interface {
	GetCategories(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error)
	AddCategory(ctx context.Context, userID primitive.ObjectID, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID primitive.ObjectID, name string) error
}

type categoryServiceImpl struct {
	categoryRepo repositories.CategoryRepository
	now          func() time.Time
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categoryRepo repositories.CategoryRepository) CategoryService {
	return &categoryServiceImpl{categoryRepo: categoryRepo, now: time.Now}
}

func (s *categoryServiceImpl) GetCategories(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error) {
	log.Debug().Str("user_id", userID.Hex()).Msg("Attempting to get categories")
	categories, err := s.categoryRepo.List(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to get categories")
	}
	return categories, nil
}

// AddCategory appends a category. Duplicate names are allowed.
func (s *categoryServiceImpl) AddCategory(ctx context.Context, userID primitive.ObjectID, name string) (*models.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperror.NewValidationError("name is required", nil)
	}

	category := models.Category{Name: name, CreatedAt: s.now().UTC().Truncate(time.Millisecond)}
	if err := s.categoryRepo.Append(ctx, userID, category); err != nil {
		return nil, storeError(err, "failed to add category")
	}

	metrics.CategoryCreatedTotal.Inc()
	log.Info().Str("user_id", userID.Hex()).Str("category_name", name).Msg("Category added successfully")
	return &category, nil
}

// DeleteCategory removes every category with that name. Deleting a name
// that is not present is not an error.
func (s *categoryServiceImpl) DeleteCategory(ctx context.Context, userID primitive.ObjectID, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.NewValidationError("name is required", nil)
	}

	removed, err := s.categoryRepo.RemoveByName(ctx, userID, name)
	if err != nil {
		return storeError(err, "failed to delete category")
	}

	log.Info().Str("user_id", userID.Hex()).Str("category_name", name).Bool("removed", removed).Msg("Category delete processed")
	return nil
}
