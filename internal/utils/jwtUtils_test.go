package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Minute, time.Hour)
	userID := primitive.NewObjectID()

	pair, err := tm.GenerateTokenPair(userID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := tm.Parse(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.Hex(), access.UserID)
	assert.NotEmpty(t, access.ID)

	refresh, err := tm.Parse(pair.RefreshToken, RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestParseRejectsWrongType(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Minute, time.Hour)
	refresh, err := tm.GenerateRefreshToken(primitive.NewObjectID())
	require.NoError(t, err)

	_, err = tm.Parse(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Minute, time.Hour)
	token, err := tm.GenerateAccessToken(primitive.NewObjectID())
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.Parse(token, AccessToken)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", time.Minute, time.Hour)
	_, err = other.Parse(token, AccessToken)
	assert.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	tm := NewTokenManager("", time.Minute, time.Hour)
	_, err := tm.GenerateAccessToken(primitive.NewObjectID())
	assert.Error(t, err)
}

func TestGenerateSecureOTP(t *testing.T) {
	otp, err := GenerateSecureOTP(6)
	require.NoError(t, err)
	assert.Len(t, otp, 6)
	for _, c := range otp {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestGenerateSecureOTPRejectsEmptyLength(t *testing.T) {
	_, err := GenerateSecureOTP(0)
	assert.Error(t, err)
}
