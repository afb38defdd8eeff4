package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceManager_IssueAndVerify(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Now()}
	manager := NewNonceManager("secret", time.Hour, clock.Now)

	// Act
	nonce, expiresAt, err := manager.Issue()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), expiresAt)
	assert.NoError(t, manager.Verify(nonce))
}

func TestNonceManager_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	manager := NewNonceManager("secret", time.Hour, clock.Now)
	nonce, _, err := manager.Issue()
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Hour)

	assert.ErrorIs(t, manager.Verify(nonce), ErrInvalidNonce)
}

func TestNonceManager_Rejects(t *testing.T) {
	manager := NewNonceManager("secret", 0, nil)
	other := NewNonceManager("another-secret", 0, nil)
	foreign, _, err := other.Issue()
	require.NoError(t, err)

	wrongAction, err := jwt.NewWithClaims(jwt.SigningMethodHS256, nonceClaims{
		Action: "something-else",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, nonce := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other secret": foreign,
		"wrong action": wrongAction,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, manager.Verify(nonce), ErrInvalidNonce)
		})
	}
}
