package domain

import "time"

// AuditLog is one append-only record of an administrative action.
// Rows are never updated or deleted; pruning is an operational concern.
type AuditLog struct {
	ID         string
	AdminID    string
	Action     string
	TargetType string
	TargetID   string
	Details    string // JSON, opaque to the engine
	IPAddress  string
	CreatedAt  time.Time
}
