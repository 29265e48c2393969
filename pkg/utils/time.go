package utils

import "time"

// Now returns current time (useful for mocking in tests)
var Now = time.Now

// DaysBetween returns the whole days elapsed from start to end.
func DaysBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

// IsExpired reports whether expiry is set and not after now.
func IsExpired(expiry *time.Time, now time.Time) bool {
	return expiry == nil || !expiry.After(now)
}
