// Package dbtest starts a throwaway MongoDB container for integration tests.
package dbtest

import (
	"context"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const image = "mongo:7"

// StartMongo runs a MongoDB container and returns its connection string and
// a function that terminates it.
func StartMongo(ctx context.Context) (string, func(context.Context) error, error) {
	container, err := mongodb.Run(ctx, image)
	if err != nil {
		return "", nil, err
	}

	terminate := func(ctx context.Context) error {
		return testcontainers.TerminateContainer(container, testcontainers.StopContext(ctx))
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return "", terminate, err
	}
	return uri, terminate, nil
}
