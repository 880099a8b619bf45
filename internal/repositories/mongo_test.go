package repositories_test

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"spendwise/internal/database"
	"spendwise/internal/database/dbtest"
	"spendwise/internal/repositories"
	"spendwise/internal/repositories/repotest"
)

var mongoURI string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	uri, teardown, err := dbtest.StartMongo(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start mongodb container")
	}
	mongoURI = uri

	code := m.Run()

	if err := teardown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Could not teardown mongodb container")
	}
	os.Exit(code)
}

func TestMongoRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	db, err := database.New(ctx, mongoURI, "spendwise_repo_test")
	require.NoError(t, err)
	defer db.Close(ctx)
	require.NoError(t, db.EnsureIndexes(ctx))

	repotest.Run(t, repotest.Repos{
		Users:      repositories.NewUserRepository(db),
		Expenses:   repositories.NewExpenseRepository(db),
		Categories: repositories.NewCategoryRepository(db),
		OTPs:       repositories.NewOTPRepository(db),
	})
}
