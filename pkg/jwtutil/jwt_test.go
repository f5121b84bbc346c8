package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 24})

	token, err := j.GenerateToken("user-1", "agent@properlia.test", "admin", "jti-1")
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "agent@properlia.test", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	token, err := j.GenerateToken("user-1", "a@b.co", "", "jti-1")
	require.NoError(t, err)

	other := NewJWTUtil(&JWTConfig{SigningKey: "other", ExpirationHours: 1})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateRequiresKey(t *testing.T) {
	_, err := NewJWTUtil(&JWTConfig{}).GenerateToken("u", "e", "r", "j")
	assert.Error(t, err)

	_, err = NewJWTUtil(nil).ValidateToken("x")
	assert.Error(t, err)
}

func TestValidateRequiresJTI(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	token, err := j.GenerateToken("user-1", "a@b.co", "", "")
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}
