package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	h := NewHasher(Config{Cost: bcrypt.MinCost})

	hash, err := h.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("battery staple", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestNewHasher_InvalidCost(t *testing.T) {
	assert.Equal(t, 12, NewHasher(Config{Cost: 0}).cost)
	assert.Equal(t, 12, NewHasher(Config{Cost: 99}).cost)
}

func TestHasher_PasswordTooLong(t *testing.T) {
	h := NewHasher(Config{Cost: bcrypt.MinCost})
	_, err := h.HashPassword(strings.Repeat("x", 100))
	assert.Error(t, err)
}
