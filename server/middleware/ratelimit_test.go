package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRateLimiterBudget(t *testing.T) {
	l := NewSessionRateLimiter(3)
	defer l.Stop()

	require.True(t, l.Allow("session-a"))
	require.True(t, l.Allow("session-a"))
	require.True(t, l.Allow("session-a"))
	require.False(t, l.Allow("session-a"))
}

func TestSessionRateLimiterIsolatesSessions(t *testing.T) {
	l := NewSessionRateLimiter(1)
	defer l.Stop()

	require.True(t, l.Allow("session-a"))
	require.False(t, l.Allow("session-a"))

	// A different session has its own bucket.
	require.True(t, l.Allow("session-b"))
}

func TestSessionRateLimiterStop(t *testing.T) {
	l := NewSessionRateLimiter(1)

	l.Stop()
	// Stop is idempotent and does not tear down the limiter state.
	l.Stop()
	require.True(t, l.Allow("session-a"))
}
