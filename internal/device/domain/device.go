package domain

import "time"

// Device is one entry in a user's bounded set of allowed fingerprints.
// Only account types with max_devices > 1 use this table; single-device
// accounts bind through the scalar users.device_fingerprint column.
type Device struct {
	ID          string
	UserID      string
	Fingerprint string
	CreatedAt   time.Time
}
