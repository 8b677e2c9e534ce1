package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	"license-auth/backend/internal/auth"
	eventdomain "license-auth/backend/internal/authevent/domain"
	"license-auth/backend/internal/device"
	"license-auth/backend/internal/security"
	sessiondomain "license-auth/backend/internal/session/domain"
	userdomain "license-auth/backend/internal/user/domain"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	CreateExclusive(ctx context.Context, s *sessiondomain.Session) error
	RevokeByToken(ctx context.Context, token string) error
	UpdateLastActivity(ctx context.Context, token string, at time.Time) error
	ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error
}

// AccountTypeRepo is the minimal account type repository needed by the auth service.
type AccountTypeRepo interface {
	GetByID(ctx context.Context, id string) (*accounttypedomain.AccountType, error)
}

// EventRecorder appends authentication events. Best-effort; a recording
// failure never changes the authentication outcome.
type EventRecorder interface {
	Record(ctx context.Context, event *eventdomain.AuthEvent) error
}

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	SessionToken string
	ExpiresAt    time.Time
	User         *userdomain.User
	AccountType  *accounttypedomain.AccountType
}

// ValidateResult holds the session, its owner, and the owner's account type
// as seen by a successful validation.
type ValidateResult struct {
	Session     *sessiondomain.Session
	User        *userdomain.User
	AccountType *accounttypedomain.AccountType
}

// AuthService implements login, session validation, and logout. Every login
// attempt records exactly one auth event regardless of outcome; every
// validation re-checks the owning user so account-level revocation cascades
// to open sessions without any bookkeeping at revocation time.
type AuthService struct {
	users        UserRepo
	sessions     SessionRepo
	accountTypes AccountTypeRepo
	devices      *device.Policy
	hasher       *security.Hasher
	events       EventRecorder
	sessionTTL   time.Duration
	sliding      bool
	storeTimeout time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
// events may be nil when no event recording is configured.
func NewAuthService(
	users UserRepo,
	sessions SessionRepo,
	accountTypes AccountTypeRepo,
	devices *device.Policy,
	hasher *security.Hasher,
	events EventRecorder,
	sessionTTL time.Duration,
	sliding bool,
	storeTimeout time.Duration,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		accountTypes: accountTypes,
		devices:      devices,
		hasher:       hasher,
		events:       events,
		sessionTTL:   sessionTTL,
		sliding:      sliding,
		storeTimeout: storeTimeout,
	}
}

// Login authenticates the user, enforces the device binding policy, and issues
// a new session. Issuing deactivates any prior active session for the same
// (user, fingerprint) pair, so at most one is live per device.
//
// Checks run in a fixed order and the first failure wins: unknown user
// (auth.ErrNotFound), disabled account (auth.ErrDisabled), expired account
// (auth.ErrExpired), wrong password (auth.ErrBadCredential), device mismatch
// (auth.ErrDeviceMismatch).
func (s *AuthService) Login(ctx context.Context, username, password, fingerprint, clientIP string) (result *LoginResult, err error) {
	reason := ""
	defer func() {
		s.recordLoginAttempt(ctx, username, fingerprint, clientIP, err == nil, reason)
	}()

	if username == "" || password == "" || fingerprint == "" {
		reason = "missing_field"
		return nil, auth.ErrBadCredential
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	user, lookupErr := s.users.GetByUsername(storeCtx, username)
	if lookupErr != nil {
		reason = "store_error"
		return nil, auth.ErrStoreUnavailable
	}
	if user == nil {
		reason = "unknown_user"
		return nil, auth.ErrNotFound
	}
	if !user.IsActive {
		reason = "account_disabled"
		return nil, auth.ErrDisabled
	}
	now := time.Now().UTC()
	if user.ExpiredAt(now) {
		reason = "account_expired"
		return nil, auth.ErrExpired
	}
	if cmpErr := s.hasher.Compare(user.PasswordHash, []byte(password)); cmpErr != nil {
		if errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword) {
			reason = "bad_password"
			return nil, auth.ErrBadCredential
		}
		reason = "hash_error"
		return nil, cmpErr
	}

	accountType, atErr := s.loadAccountType(ctx, user.AccountTypeID)
	if atErr != nil {
		reason = "store_error"
		return nil, auth.ErrStoreUnavailable
	}

	bindCtx, cancelBind := s.storeContext(ctx)
	defer cancelBind()
	if bindErr := s.devices.BindOrCheck(bindCtx, user, accountType, fingerprint); bindErr != nil {
		if errors.Is(bindErr, auth.ErrDeviceMismatch) {
			reason = "device_mismatch"
			return nil, auth.ErrDeviceMismatch
		}
		reason = "store_error"
		return nil, auth.ErrStoreUnavailable
	}

	token, tokErr := security.NewSessionToken()
	if tokErr != nil {
		reason = "token_error"
		return nil, tokErr
	}
	session := &sessiondomain.Session{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		SessionToken:      token,
		DeviceFingerprint: fingerprint,
		ExpiresAt:         now.Add(s.sessionTTL),
		CreatedAt:         now,
		LastActivity:      now,
		IsActive:          true,
	}
	createCtx, cancelCreate := s.storeContext(ctx)
	defer cancelCreate()
	if createErr := s.sessions.CreateExclusive(createCtx, session); createErr != nil {
		reason = "store_error"
		return nil, auth.ErrStoreUnavailable
	}

	return &LoginResult{
		SessionToken: token,
		ExpiresAt:    session.ExpiresAt,
		User:         user,
		AccountType:  accountType,
	}, nil
}

// Validate checks a session token and the account that owns it. Returns
// auth.ErrNotFound for an unknown token, auth.ErrExpired when the session or
// the owning account is past its expiry, and auth.ErrSessionInvalid when the
// session was revoked or the owner is disabled or gone. On success the
// session's last_activity is bumped best-effort; with sliding expiry
// configured, expires_at is pushed forward as well.
func (s *AuthService) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	if token == "" {
		return nil, auth.ErrNotFound
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.sessions.GetByToken(storeCtx, token)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if session == nil {
		return nil, auth.ErrNotFound
	}
	now := time.Now().UTC()
	if !session.IsActive {
		return nil, auth.ErrSessionInvalid
	}
	if session.ExpiredAt(now) {
		return nil, auth.ErrExpired
	}

	userCtx, cancelUser := s.storeContext(ctx)
	defer cancelUser()
	user, err := s.users.GetByID(userCtx, session.UserID)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if user == nil || !user.IsActive {
		return nil, auth.ErrSessionInvalid
	}
	if user.ExpiredAt(now) {
		return nil, auth.ErrExpired
	}

	accountType, err := s.loadAccountType(ctx, user.AccountTypeID)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}

	touchCtx, cancelTouch := s.storeContext(ctx)
	defer cancelTouch()
	if err := s.sessions.UpdateLastActivity(touchCtx, token, now); err != nil {
		log.Printf("auth: failed to bump last_activity: %v", err)
	}
	if s.sliding {
		if err := s.sessions.ExtendExpiry(touchCtx, token, now.Add(s.sessionTTL)); err != nil {
			log.Printf("auth: failed to extend sliding expiry: %v", err)
		}
	}
	session.LastActivity = now
	return &ValidateResult{Session: session, User: user, AccountType: accountType}, nil
}

// Logout revokes the session. Idempotent: an unknown or already-revoked token
// succeeds so clients can always clear local state.
func (s *AuthService) Logout(ctx context.Context, token, clientIP string) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.sessions.RevokeByToken(storeCtx, token); err != nil {
		return auth.ErrStoreUnavailable
	}
	if s.events != nil {
		_ = s.events.Record(ctx, &eventdomain.AuthEvent{
			EventType: eventdomain.EventTypeLogout,
			Success:   true,
			IPAddress: clientIP,
		})
	}
	return nil
}

// Touch bumps the session's last_activity without running full validation.
// With sliding expiry configured, it also pushes expires_at forward; under
// absolute expiry the lifetime stays fixed at issuance.
func (s *AuthService) Touch(ctx context.Context, token string) error {
	now := time.Now().UTC()
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.sessions.UpdateLastActivity(storeCtx, token, now); err != nil {
		return auth.ErrStoreUnavailable
	}
	if s.sliding {
		if err := s.sessions.ExtendExpiry(storeCtx, token, now.Add(s.sessionTTL)); err != nil {
			return auth.ErrStoreUnavailable
		}
	}
	return nil
}

func (s *AuthService) loadAccountType(ctx context.Context, id string) (*accounttypedomain.AccountType, error) {
	if s.accountTypes == nil {
		return nil, nil
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.accountTypes.GetByID(storeCtx, id)
}

func (s *AuthService) recordLoginAttempt(ctx context.Context, username, fingerprint, clientIP string, success bool, reason string) {
	if s.events == nil {
		return
	}
	details := ""
	if reason != "" {
		details = fmt.Sprintf(`{"reason":%q}`, reason)
	}
	_ = s.events.Record(ctx, &eventdomain.AuthEvent{
		EventType:         eventdomain.EventTypeLoginAttempt,
		Username:          username,
		DeviceFingerprint: fingerprint,
		Success:           success,
		Details:           details,
		IPAddress:         clientIP,
	})
}

func (s *AuthService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
