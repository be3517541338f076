// Package config reads process configuration from the environment, loading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string

	JWTSecret    string
	StaticTokens []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	Location               *time.Location
	CalendarTimeout        time.Duration
	FallbackMeetingBaseURL string

	RedisAddr     string
	RedisPassword string

	ConnectRateLimit float64
	ConnectRateBurst int
	OAuthStateTTL    time.Duration
}

// GoogleConfigured reports whether calendar integration can be offered.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// StateSecret signs OAuth state; it falls back to the client secret when no
// JWT secret is configured.
func (c *Config) StateSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.GoogleClientSecret
}

func Load() (*Config, error) {
	// a missing .env is fine; the environment may be set directly
	_ = godotenv.Load()

	c := &Config{
		DatabaseURL:            env("DATABASE_URL", ""),
		Port:                   env("PORT", "8080"),
		JWTSecret:              strings.TrimSpace(env("JWT_HMAC_SECRET", "")),
		StaticTokens:           splitList(env("STATIC_TOKENS", "")),
		GoogleClientID:         env("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     env("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      env("GOOGLE_REDIRECT_URL", ""),
		FallbackMeetingBaseURL: env("FALLBACK_MEETING_BASE_URL", "https://meet.jit.si"),
		RedisAddr:              env("REDIS_ADDR", ""),
		RedisPassword:          env("REDIS_PASSWORD", ""),
	}
	if c.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL required")
	}

	var err error
	if c.Location, err = loadLocation(env("SCHEDULER_TIMEZONE", "")); err != nil {
		return nil, err
	}
	if c.CalendarTimeout, err = duration("CALENDAR_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if c.OAuthStateTTL, err = duration("OAUTH_STATE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if c.ConnectRateLimit, err = strconv.ParseFloat(env("CONNECT_RATE_LIMIT", "1"), 64); err != nil {
		return nil, fmt.Errorf("CONNECT_RATE_LIMIT: %w", err)
	}
	if c.ConnectRateBurst, err = strconv.Atoi(env("CONNECT_RATE_BURST", "5")); err != nil {
		return nil, fmt.Errorf("CONNECT_RATE_BURST: %w", err)
	}
	return c, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_TIMEZONE: %w", err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
