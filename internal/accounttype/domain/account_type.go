package domain

import "time"

// Well-known account type names seeded at initialization.
const (
	NameTrial = "trial"
	NamePaid  = "paid"
)

// AccountType is immutable reference data describing an account tier.
// DurationDays nil means unlimited (no expiry).
type AccountType struct {
	ID           string
	Name         string
	DurationDays *int
	MaxDevices   int
	Features     []byte // JSONB, opaque to the engine
	CreatedAt    time.Time
}

// ExpiryFrom derives a user expiry from now, or nil for unlimited types.
func (t *AccountType) ExpiryFrom(now time.Time) *time.Time {
	if t.DurationDays == nil {
		return nil
	}
	exp := now.AddDate(0, 0, *t.DurationDays)
	return &exp
}
