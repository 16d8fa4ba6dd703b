package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", 42, 7, "sess-1", "dev-1", "stylist", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.StylistID)
	assert.Equal(t, int64(7), claims.SalonID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "dev-1", claims.DeviceID)
	assert.Equal(t, "stylist", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", 42, 7, "sess-1", "dev-1", "stylist", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	require.Error(t, err)
}

func TestAccessTokenExpiry(t *testing.T) {
	token, err := GenerateAccessToken("secret", 42, 7, "sess-1", "dev-1", "stylist", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "secret")
	require.Error(t, err)
}

func TestRefreshTokenHashMatches(t *testing.T) {
	token, hash, err := GenerateRefreshToken(64)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, hash, HashRefreshToken(token))
	assert.NotEqual(t, hash, HashRefreshToken(token+"x"))
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, _, err := GenerateRefreshToken(0)
	require.NoError(t, err)
	b, _, err := GenerateRefreshToken(0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("hunter2hunter2"), hash)

	ok, err := VerifyPassword("hunter2hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
