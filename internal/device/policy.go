// Package device enforces the one-active-device-per-account policy, generalized
// to a bounded fingerprint set for account types that allow more than one device.
package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	"license-auth/backend/internal/auth"
	devicedomain "license-auth/backend/internal/device/domain"
	userdomain "license-auth/backend/internal/user/domain"
)

// UserBinder is the minimal user repository needed by the policy.
type UserBinder interface {
	BindFingerprint(ctx context.Context, id, fingerprint string) (bool, error)
}

// SetBinder is the minimal device repository needed by the policy.
type SetBinder interface {
	BindWithinLimit(ctx context.Context, d *devicedomain.Device, maxDevices int) (bool, error)
}

// Policy decides whether a login fingerprint is allowed for a user. Binding is
// first-use: an unbound account adopts the first fingerprint it sees. A bound
// account rejects every other fingerprint until an admin resets the binding;
// eviction is never automatic.
type Policy struct {
	users   UserBinder
	devices SetBinder
}

// NewPolicy returns a Policy backed by the given repositories.
func NewPolicy(users UserBinder, devices SetBinder) *Policy {
	return &Policy{users: users, devices: devices}
}

// BindOrCheck binds fingerprint to the user on first use or verifies membership
// of the existing binding. Returns nil when allowed; auth.ErrDeviceMismatch when
// the account is bound elsewhere. All writes are compare-and-set at the store,
// so a concurrent first login loses cleanly instead of overwriting.
func (p *Policy) BindOrCheck(ctx context.Context, user *userdomain.User, accountType *accounttypedomain.AccountType, fingerprint string) error {
	maxDevices := 1
	if accountType != nil && accountType.MaxDevices > 1 {
		maxDevices = accountType.MaxDevices
	}

	if maxDevices == 1 {
		bound, err := p.users.BindFingerprint(ctx, user.ID, fingerprint)
		if err != nil {
			return err
		}
		if !bound {
			return auth.ErrDeviceMismatch
		}
		return nil
	}

	member, err := p.devices.BindWithinLimit(ctx, &devicedomain.Device{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
	}, maxDevices)
	if err != nil {
		return err
	}
	if !member {
		return auth.ErrDeviceMismatch
	}
	return nil
}
