package utils

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndex creates one index and names the failing index in the error.
func CreateIndex(ctx context.Context, collection *mongo.Collection, keys interface{}, name string, opts *options.IndexOptions) error {
	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("existing %s values are not unique: %w", name, err)
		}
		return fmt.Errorf("failed to create %s index on %s: %w", name, collection.Name(), err)
	}
	return nil
}

// CreateUniqueIndex is sparse so documents that omit the field do not collide.
func CreateUniqueIndex(ctx context.Context, collection *mongo.Collection, keys interface{}, name string) error {
	return CreateIndex(ctx, collection, keys, name, options.Index().SetUnique(true).SetSparse(true))
}

// CreateTTLIndex lets MongoDB delete documents once the indexed time passes.
func CreateTTLIndex(ctx context.Context, collection *mongo.Collection, field string) error {
	return CreateIndex(ctx, collection, bson.D{{Key: field, Value: 1}}, field, options.Index().SetExpireAfterSeconds(0))
}
