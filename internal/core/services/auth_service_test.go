package services

import (
	"testing"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret", 15*24*time.Hour)

	token, expiresAt, err := auth.IssueToken("u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*24*time.Hour), expiresAt, time.Minute)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), claims.UserID)
}

func TestAuthService_RejectsForeignAndExpiredTokens(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)
	other := NewAuthService("other-secret", time.Hour)

	token, _, err := other.IssueToken("u1")
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	utils.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	t.Cleanup(func() { utils.Now = time.Now })
	old, _, err := auth.IssueToken("u1")
	require.NoError(t, err)
	utils.Now = time.Now

	_, err = auth.ValidateToken(old)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, "secret123"))
	assert.False(t, h.Compare(hash, "secret124"))
}
