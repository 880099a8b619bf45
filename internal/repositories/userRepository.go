package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spendwise/internal/database"
	"spendwise/internal/models"
	"spendwise/internal/utils"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error
	RevokeToken(ctx context.Context, userID primitive.ObjectID, tokenID string) error
	IsTokenRevoked(ctx context.Context, userID primitive.ObjectID, tokenID string) (bool, error)
	CountAll(ctx context.Context) (int64, error)
}

type userRepository struct {
	db database.Service
}

func NewUserRepository(db database.Service) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.UsersCollection)
}

// profileProjection leaves out the embedded expense list, which can be large.
var profileProjection = bson.M{"expenses": 0}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	qt := utils.NewQueryTimer("create", "user")
	defer qt.ObserveDuration()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Expenses == nil {
		user.Expenses = []models.Expense{}
	}
	if user.Categories == nil {
		user.Categories = []models.Category{}
	}
	if user.RevokedTokens == nil {
		user.RevokedTokens = []string{}
	}

	_, err := r.collection().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		qt.Fail()
		log.Error().Err(err).Str("email", user.Email).Str("username", user.Username).Msg("Failed to insert user into database")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *userRepository) findOne(ctx context.Context, queryType string, filter bson.M) (*models.User, error) {
	qt := utils.NewQueryTimer(queryType, "user")
	defer qt.ObserveDuration()

	var user models.User
	err := r.collection().FindOne(ctx, filter, options.FindOne().SetProjection(profileProjection)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		qt.Fail()
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": userID})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "findByEmail", bson.M{"email": email})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "findByUsername", bson.M{"username": username})
}

func (r *userRepository) exists(ctx context.Context, queryType string, filter bson.M) (bool, error) {
	qt := utils.NewQueryTimer(queryType, "user")
	defer qt.ObserveDuration()

	count, err := r.collection().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		qt.Fail()
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "existsByEmail", bson.M{"email": email})
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "existsByUsername", bson.M{"username": username})
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error {
	qt := utils.NewQueryTimer("updatePassword", "user")
	defer qt.ObserveDuration()

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error updating user password")
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) RevokeToken(ctx context.Context, userID primitive.ObjectID, tokenID string) error {
	qt := utils.NewQueryTimer("revokeToken", "user")
	defer qt.ObserveDuration()

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": bson.M{"revoked_tokens": tokenID}})
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error revoking token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) IsTokenRevoked(ctx context.Context, userID primitive.ObjectID, tokenID string) (bool, error) {
	return r.exists(ctx, "isTokenRevoked", bson.M{"_id": userID, "revoked_tokens": tokenID})
}

func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	qt := utils.NewQueryTimer("countAll", "user")
	defer qt.ObserveDuration()

	count, err := r.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		qt.Fail()
		log.Error().Err(err).Msg("Failed to count total users")
		return 0, fmt.Errorf("failed to count total users: %w", err)
	}
	return count, nil
}
