package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sched")
	for _, k := range []string{"PORT", "SCHEDULER_TIMEZONE", "CALENDAR_TIMEOUT", "OAUTH_STATE_TTL",
		"CONNECT_RATE_LIMIT", "CONNECT_RATE_BURST", "FALLBACK_MEETING_BASE_URL", "STATIC_TOKENS", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, time.Local, c.Location)
	assert.Equal(t, 10*time.Second, c.CalendarTimeout)
	assert.Equal(t, 10*time.Minute, c.OAuthStateTTL)
	assert.Equal(t, 1.0, c.ConnectRateLimit)
	assert.Equal(t, 5, c.ConnectRateBurst)
	assert.Equal(t, "https://meet.jit.si", c.FallbackMeetingBaseURL)
	assert.Empty(t, c.StaticTokens)
	assert.Empty(t, c.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sched")
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEDULER_TIMEZONE", "Europe/Berlin")
	t.Setenv("CALENDAR_TIMEOUT", "3s")
	t.Setenv("STATIC_TOKENS", " a, b ,,c")
	t.Setenv("CONNECT_RATE_BURST", "2")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "Europe/Berlin", c.Location.String())
	assert.Equal(t, 3*time.Second, c.CalendarTimeout)
	assert.Equal(t, []string{"a", "b", "c"}, c.StaticTokens)
	assert.Equal(t, 2, c.ConnectRateBurst)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SCHEDULER_TIMEZONE": "Mars/Olympus",
		"CALENDAR_TIMEOUT":   "soon",
		"CONNECT_RATE_LIMIT": "fast",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/sched")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestStateSecretFallsBackToClientSecret(t *testing.T) {
	c := &Config{GoogleClientSecret: "client-secret"}
	assert.Equal(t, "client-secret", c.StateSecret())
	c.JWTSecret = "jwt"
	assert.Equal(t, "jwt", c.StateSecret())
}
