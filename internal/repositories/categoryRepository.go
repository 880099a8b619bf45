package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spendwise/internal/database"
	"spendwise/internal/models"
	"spendwise/internal/utils"
)

type CategoryRepository interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error)
	Append(ctx context.Context, userID primitive.ObjectID, category models.Category) error
	// RemoveByName deletes every category with that name in one update and
	// reports whether any was removed.
	RemoveByName(ctx context.Context, userID primitive.ObjectID, name string) (bool, error)
}

type categoryRepository struct {
	db database.Service
}

func NewCategoryRepository(db database.Service) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.UsersCollection)
}

func (r *categoryRepository) List(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error) {
	qt := utils.NewQueryTimer("list", "category")
	defer qt.ObserveDuration()

	var user struct {
		Categories []models.Category `bson:"categories"`
	}
	opts := options.FindOne().SetProjection(bson.M{"categories": 1})
	err := r.collection().FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		qt.Fail()
		return nil, fmt.Errorf("error fetching categories: %w", err)
	}
	if user.Categories == nil {
		return []models.Category{}, nil
	}
	return user.Categories, nil
}

func (r *categoryRepository) Append(ctx context.Context, userID primitive.ObjectID, category models.Category) error {
	qt := utils.NewQueryTimer("append", "category")
	defer qt.ObserveDuration()

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$push": bson.M{"categories": category}})
	if err != nil {
		qt.Fail()
		return fmt.Errorf("failed to insert category: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) RemoveByName(ctx context.Context, userID primitive.ObjectID, name string) (bool, error) {
	qt := utils.NewQueryTimer("removeByName", "category")
	defer qt.ObserveDuration()

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$pull": bson.M{"categories": bson.M{"name": name}}})
	if err != nil {
		qt.Fail()
		return false, fmt.Errorf("failed to delete category: %w", err)
	}
	if result.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}
