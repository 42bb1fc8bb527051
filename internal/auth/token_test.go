package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 120)

	token, exp, err := tm.GenerateToken("alice", domain.RoleEmployee)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{Username: "alice", Role: domain.RoleEmployee}, claims.Principal())
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", 10).GenerateToken("bob", domain.RoleManager)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := tm.GenerateToken("bob", domain.RoleManager)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	token, _, err := tm.GenerateToken("mallory", domain.Role("Admin"))
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{Username: "eve", Role: domain.RoleManager}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 10).ParseToken(signed)
	assert.Error(t, err)
}

func TestPassword_HashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.Error(t, ComparePassword(hash, "hunter3"))
}

func TestPassword_InvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "pw"))
}
