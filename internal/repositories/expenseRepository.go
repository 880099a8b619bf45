package repositories

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spendwise/internal/database"
	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/utils"
)

// ExpenseRepository stores expenses embedded in their owner's user document.
type ExpenseRepository interface {
	Query(ctx context.Context, plan *query.Plan) ([]models.Expense, error)
	Append(ctx context.Context, userID primitive.ObjectID, expense models.Expense) error
	// Remove reports whether an expense with that id was present.
	Remove(ctx context.Context, userID primitive.ObjectID, expenseID string) (bool, error)
}

type expenseRepository struct {
	db database.Service
}

func NewExpenseRepository(db database.Service) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.UsersCollection)
}

func (r *expenseRepository) Query(ctx context.Context, plan *query.Plan) ([]models.Expense, error) {
	qt := utils.NewQueryTimer("query", "expense")
	defer qt.ObserveDuration()

	cursor, err := r.collection().Aggregate(ctx, plan.Pipeline())
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Object("plan", plan).Msg("Expense aggregation failed")
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []models.Expense{}
	if err := cursor.All(ctx, &expenses); err != nil {
		qt.Fail()
		return nil, fmt.Errorf("error decoding expenses: %w", err)
	}
	return expenses, nil
}

func (r *expenseRepository) Append(ctx context.Context, userID primitive.ObjectID, expense models.Expense) error {
	qt := utils.NewQueryTimer("append", "expense")
	defer qt.ObserveDuration()

	// The id guard and the push happen in one document update, so two
	// concurrent appends of the same id cannot both land.
	filter := bson.M{"_id": userID, "expenses._id": bson.M{"$ne": expense.ID}}
	update := bson.M{"$push": bson.M{"expenses": expense}}
	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Str("user_id", userID.Hex()).Str("expense_id", expense.ID).Msg("Failed to append expense")
		return fmt.Errorf("failed to append expense: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}
	return r.missingOrDuplicate(ctx, userID)
}

func (r *expenseRepository) missingOrDuplicate(ctx context.Context, userID primitive.ObjectID) error {
	count, err := r.collection().CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrDuplicate
}

func (r *expenseRepository) Remove(ctx context.Context, userID primitive.ObjectID, expenseID string) (bool, error) {
	qt := utils.NewQueryTimer("remove", "expense")
	defer qt.ObserveDuration()

	update := bson.M{"$pull": bson.M{"expenses": bson.M{"_id": expenseID}}}
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Str("user_id", userID.Hex()).Str("expense_id", expenseID).Msg("Failed to remove expense")
		return false, fmt.Errorf("failed to remove expense: %w", err)
	}
	if result.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}
