package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1)
	tok, err := m.GenerateToken("ronald", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ronald", claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, err := NewJWTManager("a", 1).GenerateToken("ronald", RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTManager("b", 1).VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewJWTManager("a", 1).VerifyToken("not-a-token")
	assert.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 12*60*60.0, NewJWTManager("a", 0).TTL().Seconds())
}
