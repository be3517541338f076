package model

import (
	"fmt"
	"time"
)

const ClockLayout = "15:04"

// ParseClock parses an HH:MM time of day. Longer database renderings such as
// "09:00:00" or "09:00:00.000000" are cut to their first five characters.
func ParseClock(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	tt, err := time.Parse(ClockLayout, s[:5])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return tt, nil
}

// NormalizeClock parses s and truncates it to its 5-minute boundary.
func NormalizeClock(s string) (string, error) {
	tt, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return tt.Truncate(5 * time.Minute).Format(ClockLayout), nil
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", s)
	}
	return d, nil
}
