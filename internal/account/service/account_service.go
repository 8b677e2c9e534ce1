// Package service implements the admin-facing account management operations.
// Every mutating operation writes one audit log entry attributed to the
// acting admin; audit failures are surfaced for monitoring but never roll
// back the operation itself.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	"license-auth/backend/internal/auth"
	"license-auth/backend/internal/security"
	userdomain "license-auth/backend/internal/user/domain"
)

// UserRepo is the user repository surface needed by account management.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	List(ctx context.Context, includeInactive bool, limit, offset int32) ([]*userdomain.User, error)
	Search(ctx context.Context, query string, limit int32) ([]*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	ClearFingerprint(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdateExpiry(ctx context.Context, id string, expiresAt *time.Time) error
	UpdateAccountType(ctx context.Context, id, accountTypeID string, expiresAt *time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// AccountTypeRepo is the account type surface needed by account management.
type AccountTypeRepo interface {
	GetByName(ctx context.Context, name string) (*accounttypedomain.AccountType, error)
	GetByID(ctx context.Context, id string) (*accounttypedomain.AccountType, error)
	List(ctx context.Context) ([]*accounttypedomain.AccountType, error)
}

// DeviceRepo is the device set surface needed by account management.
type DeviceRepo interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// SessionRevoker revokes all of a user's sessions.
type SessionRevoker interface {
	RevokeAllByUser(ctx context.Context, userID string) error
}

// AuditLogger records one entry per admin action.
type AuditLogger interface {
	LogAction(ctx context.Context, adminID, action, targetType, targetID, details, ip string) error
}

// AccountService implements admin-gated account lifecycle operations.
type AccountService struct {
	users        UserRepo
	accountTypes AccountTypeRepo
	devices      DeviceRepo
	sessions     SessionRevoker
	hasher       *security.Hasher
	audit        AuditLogger
	storeTimeout time.Duration
}

// NewAccountService returns an AccountService with the given dependencies.
func NewAccountService(
	users UserRepo,
	accountTypes AccountTypeRepo,
	devices DeviceRepo,
	sessions SessionRevoker,
	hasher *security.Hasher,
	audit AuditLogger,
	storeTimeout time.Duration,
) *AccountService {
	return &AccountService{
		users:        users,
		accountTypes: accountTypes,
		devices:      devices,
		sessions:     sessions,
		hasher:       hasher,
		audit:        audit,
		storeTimeout: storeTimeout,
	}
}

// CreateUser creates a user under the named account type. The expiry is
// derived from the type's duration at creation time; unlimited types leave it
// nil. Returns auth.ErrConflict when the username is taken and
// auth.ErrNotFound when the account type does not exist.
func (s *AccountService) CreateUser(ctx context.Context, adminID, username, password, accountTypeName, clientIP string) (*userdomain.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	accountType, err := s.accountTypes.GetByName(storeCtx, accountTypeName)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if accountType == nil {
		return nil, auth.ErrNotFound
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:            uuid.New().String(),
		Username:      username,
		PasswordHash:  hash,
		AccountTypeID: accountType.ID,
		ExpiresAt:     accountType.ExpiryFrom(now),
		CreatedAt:     now,
		UpdatedAt:     now,
		IsActive:      true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	createCtx, cancelCreate := s.storeContext(ctx)
	defer cancelCreate()
	if err := s.users.Create(createCtx, user); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return nil, auth.ErrConflict
		}
		return nil, auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "create_user", user.ID,
		fmt.Sprintf(`{"username":%q,"account_type":%q}`, username, accountTypeName), clientIP)
	return user, nil
}

// DisableUser deactivates the account. Open sessions are not touched here;
// they die on their next validation because validation re-checks the owner.
func (s *AccountService) DisableUser(ctx context.Context, adminID, userID, clientIP string) error {
	if err := s.setActive(ctx, userID, false); err != nil {
		return err
	}
	s.logAction(ctx, adminID, "disable_user", userID, "", clientIP)
	return nil
}

// ReactivateUser re-enables a disabled account. Expiry is untouched: an
// expired account stays expired until renewed.
func (s *AccountService) ReactivateUser(ctx context.Context, adminID, userID, clientIP string) error {
	if err := s.setActive(ctx, userID, true); err != nil {
		return err
	}
	s.logAction(ctx, adminID, "reactivate_user", userID, "", clientIP)
	return nil
}

// RenewUser recomputes the user's expiry from their current account type
// relative to now: a 30-day type restarts a fresh 30-day window regardless of
// what remained, and unlimited types clear the expiry. The single-statement
// UpdateExpiry write cannot interleave inside a concurrent session issue.
func (s *AccountService) RenewUser(ctx context.Context, adminID, userID, clientIP string) (*time.Time, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	accountType, err := s.accountTypes.GetByID(storeCtx, user.AccountTypeID)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if accountType == nil {
		return nil, auth.ErrNotFound
	}

	newExpiry := accountType.ExpiryFrom(time.Now().UTC())
	updateCtx, cancelUpdate := s.storeContext(ctx)
	defer cancelUpdate()
	if err := s.users.UpdateExpiry(updateCtx, userID, newExpiry); err != nil {
		return nil, auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "renew_user", userID,
		fmt.Sprintf(`{"account_type":%q,"new_expiry":%s}`, accountType.Name, expiryJSON(newExpiry)), clientIP)
	return newExpiry, nil
}

// ExtendUser adds days on top of the later of now and the current expiry,
// without re-deriving from the account type. Passing days <= 0 is an error.
func (s *AccountService) ExtendUser(ctx context.Context, adminID, userID string, days int, clientIP string) (*time.Time, error) {
	if days <= 0 {
		return nil, fmt.Errorf("extension days must be positive, got %d", days)
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	base := now
	if user.ExpiresAt != nil && user.ExpiresAt.After(now) {
		base = *user.ExpiresAt
	}
	newExpiry := base.AddDate(0, 0, days)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.users.UpdateExpiry(storeCtx, userID, &newExpiry); err != nil {
		return nil, auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "extend_user", userID,
		fmt.Sprintf(`{"days":%d,"new_expiry":%q}`, days, newExpiry.Format(time.RFC3339)), clientIP)
	return &newExpiry, nil
}

func expiryJSON(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return fmt.Sprintf("%q", t.Format(time.RFC3339))
}

// ChangeAccountType moves the user to the named account type and re-derives
// expiry from the new type's duration.
func (s *AccountService) ChangeAccountType(ctx context.Context, adminID, userID, accountTypeName, clientIP string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	accountType, err := s.accountTypes.GetByName(storeCtx, accountTypeName)
	if err != nil {
		return auth.ErrStoreUnavailable
	}
	if accountType == nil {
		return auth.ErrNotFound
	}

	updateCtx, cancelUpdate := s.storeContext(ctx)
	defer cancelUpdate()
	if err := s.users.UpdateAccountType(updateCtx, userID, accountType.ID, accountType.ExpiryFrom(time.Now().UTC())); err != nil {
		return auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "change_account_type", userID,
		fmt.Sprintf(`{"account_type":%q}`, accountTypeName), clientIP)
	return nil
}

// ResetDevice clears the user's device binding, both the scalar column and
// the bounded device set, so the next login binds fresh. This is the only way
// to move an account to new hardware.
func (s *AccountService) ResetDevice(ctx context.Context, adminID, userID, clientIP string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.users.ClearFingerprint(storeCtx, userID); err != nil {
		return auth.ErrStoreUnavailable
	}
	if s.devices != nil {
		deleteCtx, cancelDelete := s.storeContext(ctx)
		defer cancelDelete()
		if err := s.devices.DeleteByUser(deleteCtx, userID); err != nil {
			return auth.ErrStoreUnavailable
		}
	}

	s.logAction(ctx, adminID, "reset_device", userID, "", clientIP)
	return nil
}

// RevokeUserSessions immediately deactivates all of the user's sessions.
func (s *AccountService) RevokeUserSessions(ctx context.Context, adminID, userID, clientIP string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.sessions.RevokeAllByUser(storeCtx, userID); err != nil {
		return auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "revoke_sessions", userID, "", clientIP)
	return nil
}

// SetPassword replaces the user's password hash.
func (s *AccountService) SetPassword(ctx context.Context, adminID, userID, password, clientIP string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.users.UpdatePasswordHash(storeCtx, userID, hash); err != nil {
		return auth.ErrStoreUnavailable
	}

	s.logAction(ctx, adminID, "set_password", userID, "", clientIP)
	return nil
}

// GetUser returns the user by ID. Returns auth.ErrNotFound when absent.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	return s.getUser(ctx, userID)
}

// GetUserByUsername returns the user by username. Returns auth.ErrNotFound when absent.
func (s *AccountService) GetUserByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	user, err := s.users.GetByUsername(storeCtx, username)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if user == nil {
		return nil, auth.ErrNotFound
	}
	return user, nil
}

// ListUsers returns users ordered by creation time, newest first.
func (s *AccountService) ListUsers(ctx context.Context, includeInactive bool, limit, offset int32) ([]*userdomain.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	users, err := s.users.List(storeCtx, includeInactive, limit, offset)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	return users, nil
}

// SearchUsers returns users whose username matches the query substring.
func (s *AccountService) SearchUsers(ctx context.Context, query string, limit int32) ([]*userdomain.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	users, err := s.users.Search(storeCtx, query, limit)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	return users, nil
}

// ListAccountTypes returns the account type reference data.
func (s *AccountService) ListAccountTypes(ctx context.Context) ([]*accounttypedomain.AccountType, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	types, err := s.accountTypes.List(storeCtx)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	return types, nil
}

func (s *AccountService) setActive(ctx context.Context, userID string, active bool) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.users.SetActive(storeCtx, userID, active); err != nil {
		return auth.ErrStoreUnavailable
	}
	return nil
}

func (s *AccountService) getUser(ctx context.Context, userID string) (*userdomain.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if user == nil {
		return nil, auth.ErrNotFound
	}
	return user, nil
}

func (s *AccountService) logAction(ctx context.Context, adminID, action, targetID, details, ip string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.LogAction(ctx, adminID, action, "user", targetID, details, ip)
}

func (s *AccountService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
