package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
	"spendwise/internal/repositories/memory"
	"spendwise/internal/utils"
)

func TestRegisterUser(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store.Users(), newTokens())
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, &models.RegisterRequest{Username: "alice", Password: "secret", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.Len(t, user.Categories, len(models.DefaultCategories(fixedNow)))

	_, err = svc.RegisterUser(ctx, &models.RegisterRequest{Username: "alice", Password: "other"})
	assert.True(t, apperror.Is(err, apperror.ConflictError))

	_, err = svc.RegisterUser(ctx, &models.RegisterRequest{Email: "bob@example.com"})
	assert.True(t, apperror.Is(err, apperror.ValidationError))

	_, err = svc.RegisterUser(ctx, &models.RegisterRequest{Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err, "email alone identifies an account")

	exists, err := svc.CheckUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.CheckEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoginRefreshLogout(t *testing.T) {
	store := memory.NewStore()
	tokens := newTokens()
	svc := NewUserService(store.Users(), tokens)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.LoginUser(ctx, &models.Login{Username: "alice", Password: "wrong"})
	assert.True(t, apperror.Is(err, apperror.AuthError))
	_, err = svc.LoginUser(ctx, &models.Login{Username: "nobody", Password: "secret"})
	assert.True(t, apperror.Is(err, apperror.AuthError))

	pair, err := svc.LoginUser(ctx, &models.Login{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	refreshClaims, err := tokens.Parse(pair.RefreshToken, utils.RefreshToken)
	require.NoError(t, err)
	refreshed, err := svc.RefreshToken(ctx, refreshClaims)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	accessClaims, err := tokens.Parse(pair.AccessToken, utils.AccessToken)
	require.NoError(t, err)
	profile, err := svc.GetUserProfile(ctx, mustObjectID(t, accessClaims.UserID))
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Empty(t, profile.Password)

	userID := profile.ID
	require.NoError(t, svc.Logout(ctx, userID, accessClaims, pair.RefreshToken))

	users := store.Users()
	revoked, err := users.IsTokenRevoked(ctx, userID, accessClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = users.IsTokenRevoked(ctx, userID, refreshClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutRejectsForeignRefreshToken(t *testing.T) {
	store := memory.NewStore()
	tokens := newTokens()
	svc := NewUserService(store.Users(), tokens)
	alice := registerUser(t, store, "alice")
	bob := registerUser(t, store, "bob")

	access, err := tokens.GenerateAccessToken(alice.ID)
	require.NoError(t, err)
	claims, err := tokens.Parse(access, utils.AccessToken)
	require.NoError(t, err)
	bobRefresh, err := tokens.GenerateRefreshToken(bob.ID)
	require.NoError(t, err)

	err = svc.Logout(context.Background(), alice.ID, claims, bobRefresh)
	assert.True(t, apperror.Is(err, apperror.ValidationError))
}

func TestTotalUsers(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store.Users(), newTokens())
	registerUser(t, store, "alice")
	registerUser(t, store, "bob")

	total, err := svc.GetTotalUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
