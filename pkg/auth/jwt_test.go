package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

func TestIssueAndValidate(t *testing.T) {
	token, expires, err := auth.IssueToken("user-1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "shopkart",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(forged)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	config.Set("JWT_TTL", "1ms")
	defer config.Unset("JWT_TTL")

	token, _, err := auth.IssueToken("user-1", "")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = auth.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := auth.ValidateToken("not.a.jwt")
	assert.Error(t, err)

	_, _, err = auth.IssueToken("", "")
	assert.Error(t, err)
}
