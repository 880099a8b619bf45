package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"spendwise/internal/utils"
)

const (
	UsersCollection = "users"
	OTPCollection   = "otps"
)

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Database() *mongo.Database
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

type service struct {
	db     *mongo.Client
	dbName string
}

func New(ctx context.Context, uri, dbName string) (Service, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return &service{db: client, dbName: dbName}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"status":  "down",
			"message": "db down",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"status":  "up",
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Database() *mongo.Database {
	return s.db.Database(s.dbName)
}

// EnsureIndexes creates the unique login indexes on users and the expiry
// index that lets MongoDB drop stale one-time passwords.
func (s *service) EnsureIndexes(ctx context.Context) error {
	users := s.Database().Collection(UsersCollection)
	if err := utils.CreateUniqueIndex(ctx, users, bson.D{{Key: "username", Value: 1}}, "username"); err != nil {
		return err
	}
	if err := utils.CreateUniqueIndex(ctx, users, bson.D{{Key: "email", Value: 1}}, "email"); err != nil {
		return err
	}

	otps := s.Database().Collection(OTPCollection)
	if err := utils.CreateIndex(ctx, otps, bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}}, "otp lookup", nil); err != nil {
		return err
	}
	if err := utils.CreateTTLIndex(ctx, otps, "expires_at"); err != nil {
		return err
	}

	log.Debug().Str("database", s.dbName).Msg("Indexes ensured")
	return nil
}

func (s *service) Close(ctx context.Context) error {
	return s.db.Disconnect(ctx)
}
