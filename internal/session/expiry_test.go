package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}

func TestExpiresAtRejectsOpaqueTokens(t *testing.T) {
	_, err := ExpiresAt("opaque-token")
	assert.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ExpiresAt(noExp)
	assert.Error(t, err)
}
