package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	sessionID, token, err := m.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, token)

	got, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, sessionID, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m1 := NewSessionManager("secret-one", time.Hour)
	m2 := NewSessionManager("secret-two", time.Hour)

	_, token, err := m1.Issue()
	require.NoError(t, err)

	_, err = m2.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewSessionManager("test-secret", -time.Minute)
	// NewSessionManager falls back to the default TTL for non-positive
	// values, so sign directly with a negative TTL to build an expired token.
	m.ttl = -time.Minute

	_, token, err := m.Issue()
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	_, err := m.Verify("not-a-token")
	require.Error(t, err)
}

func TestIssueUniqueSessions(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	a, _, err := m.Issue()
	require.NoError(t, err)
	b, _, err := m.Issue()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
