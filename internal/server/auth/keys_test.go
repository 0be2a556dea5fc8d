package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	secret := []byte("shared-secret")

	cookieKey, err := DeriveKey(secret, PurposeSessionCookie)
	require.NoError(t, err)
	tokenKey, err := DeriveKey(secret, PurposeRecoveryToken)
	require.NoError(t, err)

	assert.Len(t, cookieKey, 32)
	assert.Len(t, tokenKey, 32)
	assert.NotEqual(t, cookieKey, tokenKey)
	assert.NotEqual(t, secret, tokenKey)

	again, err := DeriveKey(secret, PurposeRecoveryToken)
	require.NoError(t, err)
	assert.Equal(t, tokenKey, again)

	_, err = DeriveKey(nil, PurposeRecoveryToken)
	assert.Error(t, err)
}

func TestDeriveKey_TokensDoNotCrossKeys(t *testing.T) {
	secret := []byte("shared-secret")
	cookieKey, _ := DeriveKey(secret, PurposeSessionCookie)
	tokenKey, _ := DeriveKey(secret, PurposeRecoveryToken)

	now := time.Now()
	tok, err := GenerateToken("sid", 1, "ann", tokenKey, now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = ParseToken(tok, tokenKey)
	require.NoError(t, err)
	_, err = ParseToken(tok, cookieKey)
	assert.Error(t, err)
	_, err = ParseToken(tok, secret)
	assert.Error(t, err)
}
