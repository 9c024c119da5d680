package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(12345, "test-secret", 24)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), claims.UserID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "secret-a", 24)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret-b")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken(1, "test-secret", -1)
	require.NoError(t, err)

	_, err = ParseToken(token, "test-secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", "test-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
