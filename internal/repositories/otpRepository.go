package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spendwise/internal/database"
	"spendwise/internal/models"
	"spendwise/internal/utils"
)

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	// FindValid returns an unused, unexpired code for the user and purpose.
	FindValid(ctx context.Context, userID primitive.ObjectID, code, purpose string, now time.Time) (*models.OTP, error)
	MarkAsUsed(ctx context.Context, otpID primitive.ObjectID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	db database.Service
}

func NewOTPRepository(db database.Service) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.OTPCollection)
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	qt := utils.NewQueryTimer("create", "otp")
	defer qt.ObserveDuration()

	otp.ID = primitive.NewObjectID()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection().InsertOne(ctx, otp); err != nil {
		qt.Fail()
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}
	return otp, nil
}

func (r *otpRepository) FindValid(ctx context.Context, userID primitive.ObjectID, code, purpose string, now time.Time) (*models.OTP, error) {
	qt := utils.NewQueryTimer("findValid", "otp")
	defer qt.ObserveDuration()

	var otp models.OTP
	filter := bson.M{
		"user_id":    userID,
		"otp_code":   code,
		"purpose":    purpose,
		"is_used":    false,
		"expires_at": bson.M{"$gt": now},
	}
	err := r.collection().FindOne(ctx, filter).Decode(&otp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		qt.Fail()
		return nil, fmt.Errorf("failed to find otp: %w", err)
	}
	return &otp, nil
}

func (r *otpRepository) MarkAsUsed(ctx context.Context, otpID primitive.ObjectID) error {
	qt := utils.NewQueryTimer("markAsUsed", "otp")
	defer qt.ObserveDuration()

	// Guarding on is_used makes a second redemption of the same code fail.
	result, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": otpID, "is_used": false},
		bson.M{"$set": bson.M{"is_used": true}},
	)
	if err != nil {
		qt.Fail()
		return fmt.Errorf("failed to mark otp as used: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	qt := utils.NewQueryTimer("deleteExpired", "otp")
	defer qt.ObserveDuration()

	result, err := r.collection().DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		qt.Fail()
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return result.DeletedCount, nil
}
