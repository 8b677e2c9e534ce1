package domain

import "time"

// Session represents an issued session token bound to a user and device.
// A session is only as valid as its owner: validation re-checks the user's
// active and expiry state on every call.
type Session struct {
	ID                string
	UserID            string
	SessionToken      string
	DeviceFingerprint string
	ExpiresAt         time.Time
	CreatedAt         time.Time
	LastActivity      time.Time
	IsActive          bool
}

// ExpiredAt reports whether the session is past its expiry at the given instant.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
