package domain

import "time"

// Event types recorded by the engine. Exactly one EventTypeLoginAttempt row is
// written per login call regardless of outcome.
const (
	EventTypeLoginAttempt = "login_attempt"
	EventTypeAdminLogin   = "admin_login"
	EventTypeLogout       = "logout"
)

// AuthEvent is one append-only authentication event. Rows are never updated
// or deleted.
type AuthEvent struct {
	ID                string
	EventType         string
	Username          string
	DeviceFingerprint string
	Success           bool
	Details           string // JSON, opaque to the engine
	IPAddress         string
	Timestamp         time.Time
}
