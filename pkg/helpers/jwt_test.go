package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	m := NewServiceTokenManager("test-secret", time.Minute)

	token, exp, err := m.Generate("webapp")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "webapp", claims.Service)
}

func TestServiceTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewServiceTokenManager("secret-a", time.Minute)
	verifier := NewServiceTokenManager("secret-b", time.Minute)

	token, _, err := issuer.Generate("webapp")
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.Error(t, err)
}

func TestServiceTokenRejectsExpired(t *testing.T) {
	m := NewServiceTokenManager("test-secret", -time.Minute)

	token, _, err := m.Generate("webapp")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestServiceTokenRejectsGarbage(t *testing.T) {
	m := NewServiceTokenManager("test-secret", time.Minute)
	_, err := m.Parse("not-a-jwt")
	assert.Error(t, err)
}
