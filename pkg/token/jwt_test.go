package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("rahasia")
	tok, err := m.GenerateToken("ops", ScopeIngest, time.Hour)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, ScopeIngest, claims.Scope)
}

func TestVerify_Rejects(t *testing.T) {
	m := NewJWTManager("rahasia")

	expired, err := m.GenerateToken("ops", ScopeIngest, -time.Minute)
	require.NoError(t, err)
	_, err = m.VerifyToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other, err := NewJWTManager("lain").GenerateToken("ops", ScopeIngest, time.Hour)
	require.NoError(t, err)
	_, err = m.VerifyToken(other)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = m.VerifyToken("bukan.token.jwt")
	assert.Error(t, err)
}
