package domain

import (
	"errors"
	"time"
)

// User is the core account entity. DeviceFingerprint is nil until the first
// successful login binds a device; ExpiresAt is nil only for unlimited account types.
type User struct {
	ID                string
	Username          string
	PasswordHash      string
	AccountTypeID     string
	DeviceFingerprint *string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	IsActive          bool
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.AccountTypeID == "" {
		return errors.New("account type is required")
	}
	return nil
}

// ExpiredAt reports whether the account is past its expiry at the given instant.
// Unlimited accounts (nil ExpiresAt) never expire.
func (u *User) ExpiredAt(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}
