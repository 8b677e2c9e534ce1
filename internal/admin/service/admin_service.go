package service

import (
	"context"
	"errors"
	"time"

	admindomain "license-auth/backend/internal/admin/domain"
	"license-auth/backend/internal/auth"
	eventdomain "license-auth/backend/internal/authevent/domain"
	"license-auth/backend/internal/security"

	"golang.org/x/crypto/bcrypt"
)

// AdminRepo is the minimal admin repository needed by the admin service.
type AdminRepo interface {
	GetByID(ctx context.Context, id string) (*admindomain.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*admindomain.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// EventRecorder appends authentication events. Best-effort; errors are ignored
// by the service beyond logging done inside the recorder.
type EventRecorder interface {
	Record(ctx context.Context, event *eventdomain.AuthEvent) error
}

// AuthResult holds the outcome of a successful admin authentication.
type AuthResult struct {
	Admin     *admindomain.AdminUser
	Token     string
	ExpiresAt time.Time
}

// AdminService authenticates administrators and validates their tokens.
type AdminService struct {
	admins       AdminRepo
	hasher       *security.Hasher
	tokens       *security.AdminTokenProvider
	events       EventRecorder
	storeTimeout time.Duration
}

// NewAdminService returns an AdminService with the given dependencies.
// events may be nil when no event recording is configured.
func NewAdminService(
	admins AdminRepo,
	hasher *security.Hasher,
	tokens *security.AdminTokenProvider,
	events EventRecorder,
	storeTimeout time.Duration,
) *AdminService {
	return &AdminService{
		admins:       admins,
		hasher:       hasher,
		tokens:       tokens,
		events:       events,
		storeTimeout: storeTimeout,
	}
}

// Authenticate verifies the admin's credentials and issues a signed token.
// Returns auth.ErrNotFound for an unknown username, auth.ErrBadCredential for
// a wrong password, and auth.ErrDisabled for a deactivated admin. One
// admin_login event is recorded per call regardless of outcome.
func (s *AdminService) Authenticate(ctx context.Context, username, password, clientIP string) (*AuthResult, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	admin, err := s.admins.GetByUsername(storeCtx, username)
	if err != nil {
		s.recordLogin(ctx, username, clientIP, false, `{"reason":"store_error"}`)
		return nil, auth.ErrStoreUnavailable
	}
	if admin == nil {
		s.recordLogin(ctx, username, clientIP, false, `{"reason":"unknown_admin"}`)
		return nil, auth.ErrNotFound
	}
	if !admin.IsActive {
		s.recordLogin(ctx, username, clientIP, false, `{"reason":"admin_disabled"}`)
		return nil, auth.ErrDisabled
	}
	if err := s.hasher.Compare(admin.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.recordLogin(ctx, username, clientIP, false, `{"reason":"bad_password"}`)
			return nil, auth.ErrBadCredential
		}
		s.recordLogin(ctx, username, clientIP, false, `{"reason":"hash_error"}`)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		s.recordLogin(ctx, username, clientIP, false, `{"reason":"token_error"}`)
		return nil, err
	}

	now := time.Now().UTC()
	updateCtx, cancelUpdate := s.storeContext(ctx)
	defer cancelUpdate()
	if err := s.admins.UpdateLastLogin(updateCtx, admin.ID, now); err == nil {
		admin.LastLogin = &now
	}

	s.recordLogin(ctx, username, clientIP, true, "")
	return &AuthResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyToken validates a signed admin token and re-checks the admin against
// the store, so a deactivated admin is rejected even with a valid token.
// Returns auth.ErrSessionInvalid for a bad token or deactivated admin.
func (s *AdminService) VerifyToken(ctx context.Context, token string) (*admindomain.AdminUser, error) {
	adminID, _, err := s.tokens.Validate(token)
	if err != nil {
		return nil, auth.ErrSessionInvalid
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	admin, err := s.admins.GetByID(storeCtx, adminID)
	if err != nil {
		return nil, auth.ErrStoreUnavailable
	}
	if admin == nil || !admin.IsActive {
		return nil, auth.ErrSessionInvalid
	}
	return admin, nil
}

func (s *AdminService) recordLogin(ctx context.Context, username, clientIP string, success bool, details string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &eventdomain.AuthEvent{
		EventType: eventdomain.EventTypeAdminLogin,
		Username:  username,
		Success:   success,
		Details:   details,
		IPAddress: clientIP,
	})
}

func (s *AdminService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
