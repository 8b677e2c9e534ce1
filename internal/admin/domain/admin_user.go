package domain

import "time"

// AdminUser is an administrative principal. Admins live in their own namespace
// and table; a username may exist both as a User and an AdminUser.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
}
