package accounts

import "time"

// IsWithinPeriod reports whether t happened after now minus period
func IsWithinPeriod(t time.Time, period time.Duration, now time.Time) bool {
	threshold := now.Add(-period)
	return t.After(threshold)
}

// ExpiresAt returns the instant a credential issued at issuedAt stops being
// valid. ok is false when ttl disables expiry.
func ExpiresAt(issuedAt time.Time, ttl time.Duration) (at time.Time, ok bool) {
	if ttl <= 0 {
		return time.Time{}, false
	}
	return issuedAt.Add(ttl), true
}
