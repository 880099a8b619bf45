package services

import (
	"context"
	"testing"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/apperror"
	"spendwise/internal/repositories/memory"
	"spendwise/internal/utils"
)

func TestHandleLoginCreatesThenReusesUser(t *testing.T) {
	store := memory.NewStore()
	tokens := newTokens()
	svc := NewAuthService(store.Users(), tokens)
	ctx := context.Background()

	first, err := svc.HandleLogin(ctx, goth.User{Email: "dana@example.com", NickName: "dana", Name: "Dana", Provider: "google"})
	require.NoError(t, err)
	second, err := svc.HandleLogin(ctx, goth.User{Email: "dana@example.com", Provider: "google"})
	require.NoError(t, err)

	a, err := tokens.Parse(first.AccessToken, utils.AccessToken)
	require.NoError(t, err)
	b, err := tokens.Parse(second.AccessToken, utils.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.UserID, b.UserID)

	user, err := store.Users().FindByEmail(ctx, "dana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dana", user.Username)
	assert.NotEmpty(t, user.Categories)
}

func TestHandleLoginSkipsTakenNickname(t *testing.T) {
	store := memory.NewStore()
	registerUser(t, store, "dana")
	svc := NewAuthService(store.Users(), newTokens())

	_, err := svc.HandleLogin(context.Background(), goth.User{Email: "other@example.com", NickName: "dana"})
	require.NoError(t, err)

	user, err := store.Users().FindByEmail(context.Background(), "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.Username)
}

func TestHandleLoginRequiresEmail(t *testing.T) {
	svc := NewAuthService(memory.NewStore().Users(), newTokens())
	_, err := svc.HandleLogin(context.Background(), goth.User{NickName: "x"})
	assert.True(t, apperror.Is(err, apperror.AuthError))
}
