package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundtrip(t *testing.T) {
	token, err := GenerateJWT("u1", "member", "secret")
	require.NoError(t, err)

	userID, role, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "member", role)
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("u1", "member", "secret")
	require.NoError(t, err)

	_, _, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))

	r.Header.Set("Authorization", "Basic abc123")
	assert.Equal(t, "", ExtractToken(r))
}
