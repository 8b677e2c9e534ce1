package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	"license-auth/backend/internal/auth"
	authservice "license-auth/backend/internal/auth/service"
	"license-auth/backend/internal/device"
	devicedomain "license-auth/backend/internal/device/domain"
	"license-auth/backend/internal/security"
	sessiondomain "license-auth/backend/internal/session/domain"
	userdomain "license-auth/backend/internal/user/domain"
)

// mockUserRepo is an in-memory user store covering both the account service
// and the auth service repository surfaces.
type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]*userdomain.User // by ID
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*userdomain.User)}
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context, includeInactive bool, limit, offset int32) ([]*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*userdomain.User
	for _, u := range m.users {
		if !includeInactive && !u.IsActive {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockUserRepo) Search(ctx context.Context, query string, limit int32) ([]*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*userdomain.User
	for _, u := range m.users {
		if strings.Contains(u.Username, query) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return auth.ErrConflict
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) BindFingerprint(ctx context.Context, id, fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	if u.DeviceFingerprint == nil {
		u.DeviceFingerprint = &fingerprint
		return true, nil
	}
	return *u.DeviceFingerprint == fingerprint, nil
}

func (m *mockUserRepo) ClearFingerprint(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.DeviceFingerprint = nil
	}
	return nil
}

func (m *mockUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (m *mockUserRepo) UpdateExpiry(ctx context.Context, id string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.ExpiresAt = expiresAt
	}
	return nil
}

func (m *mockUserRepo) UpdateAccountType(ctx context.Context, id, accountTypeID string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.AccountTypeID = accountTypeID
		u.ExpiresAt = expiresAt
	}
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

// mockAccountTypeRepo serves fixed account type reference data.
type mockAccountTypeRepo struct {
	types map[string]*accounttypedomain.AccountType // by name
}

func intPtr(i int) *int { return &i }

func newMockAccountTypeRepo() *mockAccountTypeRepo {
	return &mockAccountTypeRepo{types: map[string]*accounttypedomain.AccountType{
		accounttypedomain.NameTrial: {ID: "at-trial", Name: accounttypedomain.NameTrial, DurationDays: intPtr(30), MaxDevices: 1},
		accounttypedomain.NamePaid:  {ID: "at-paid", Name: accounttypedomain.NamePaid, MaxDevices: 1},
	}}
}

func (m *mockAccountTypeRepo) GetByName(ctx context.Context, name string) (*accounttypedomain.AccountType, error) {
	return m.types[name], nil
}

func (m *mockAccountTypeRepo) GetByID(ctx context.Context, id string) (*accounttypedomain.AccountType, error) {
	for _, t := range m.types {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockAccountTypeRepo) List(ctx context.Context) ([]*accounttypedomain.AccountType, error) {
	var out []*accounttypedomain.AccountType
	for _, t := range m.types {
		out = append(out, t)
	}
	return out, nil
}

// mockDeviceRepo tracks the bounded device set.
type mockDeviceRepo struct {
	mu      sync.Mutex
	devices map[string][]string // userID -> fingerprints
}

func (m *mockDeviceRepo) BindWithinLimit(ctx context.Context, d *devicedomain.Device, maxDevices int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.devices == nil {
		m.devices = make(map[string][]string)
	}
	for _, fp := range m.devices[d.UserID] {
		if fp == d.Fingerprint {
			return true, nil
		}
	}
	if len(m.devices[d.UserID]) >= maxDevices {
		return false, nil
	}
	m.devices[d.UserID] = append(m.devices[d.UserID], d.Fingerprint)
	return true, nil
}

func (m *mockDeviceRepo) DeleteByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, userID)
	return nil
}

// mockSessionRepo is shared with the auth service in the round-trip test.
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session // by token
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*sessiondomain.Session)}
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) CreateExclusive(ctx context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, prior := range m.sessions {
		if prior.UserID == s.UserID && prior.DeviceFingerprint == s.DeviceFingerprint && prior.IsActive {
			prior.IsActive = false
		}
	}
	cp := *s
	m.sessions[s.SessionToken] = &cp
	return nil
}

func (m *mockSessionRepo) RevokeByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *mockSessionRepo) RevokeAllByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func (m *mockSessionRepo) UpdateLastActivity(ctx context.Context, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.LastActivity = at
	}
	return nil
}

func (m *mockSessionRepo) ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok && s.IsActive {
		s.ExpiresAt = expiresAt
	}
	return nil
}

// mockAuditLogger collects audit actions.
type mockAuditLogger struct {
	mu      sync.Mutex
	actions []string
}

func (m *mockAuditLogger) LogAction(ctx context.Context, adminID, action, targetType, targetID, details, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

type fixture struct {
	users    *mockUserRepo
	types    *mockAccountTypeRepo
	devices  *mockDeviceRepo
	sessions *mockSessionRepo
	audit    *mockAuditLogger
	svc      *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newMockUserRepo(),
		types:    newMockAccountTypeRepo(),
		devices:  &mockDeviceRepo{},
		sessions: newMockSessionRepo(),
		audit:    &mockAuditLogger{},
	}
	f.svc = NewAccountService(
		f.users, f.types, f.devices, f.sessions,
		security.NewHasher(bcrypt.MinCost), f.audit, time.Second,
	)
	return f
}

// newAuthService builds an auth service over the same stores, for tests that
// exercise the full create-then-login path.
func (f *fixture) newAuthService() *authservice.AuthService {
	return authservice.NewAuthService(
		f.users, f.sessions, f.types,
		device.NewPolicy(f.users, f.devices),
		security.NewHasher(bcrypt.MinCost),
		nil,
		24*time.Hour, false, time.Second,
	)
}

func TestCreateUser_TrialExpiry(t *testing.T) {
	f := newFixture(t)
	user, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ExpiresAt == nil {
		t.Fatal("trial user should have an expiry")
	}
	wantExpiry := time.Now().UTC().AddDate(0, 0, 30)
	if diff := user.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry = %v, want ~%v (creation + 30 days)", user.ExpiresAt, wantExpiry)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != "create_user" {
		t.Errorf("audit actions = %v, want [create_user]", f.audit.actions)
	}
}

func TestCreateUser_PaidUnlimited(t *testing.T) {
	f := newFixture(t)
	user, err := f.svc.CreateUser(context.Background(), "admin-1", "bob", "pw", accounttypedomain.NamePaid, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ExpiresAt != nil {
		t.Errorf("paid user expiry = %v, want nil (unlimited)", user.ExpiresAt)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw2", accounttypedomain.NamePaid, "")
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestCreateUser_UnknownAccountType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", "enterprise", "")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateThenLogin_RoundTrip(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	authSvc := f.newAuthService()
	res, err := authSvc.Login(context.Background(), "alice", "pw", "fp-1", "")
	if err != nil {
		t.Fatalf("Login after create: %v", err)
	}
	if res.User.ID != created.ID {
		t.Errorf("login user = %q, want %q", res.User.ID, created.ID)
	}
	verified, err := authSvc.Validate(context.Background(), res.SessionToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if verified.AccountType == nil || verified.AccountType.Name != accounttypedomain.NameTrial {
		t.Errorf("verified account type = %+v, want trial", verified.AccountType)
	}
}

func TestDisableUser_CascadesToSessions(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	authSvc := f.newAuthService()
	res, err := authSvc.Login(context.Background(), "alice", "pw", "fp-1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.DisableUser(context.Background(), "admin-1", created.ID, ""); err != nil {
		t.Fatalf("DisableUser: %v", err)
	}
	if _, err := authSvc.Validate(context.Background(), res.SessionToken); !errors.Is(err, auth.ErrSessionInvalid) {
		t.Fatalf("open session should be invalid after disable, got %v", err)
	}
	if _, err := authSvc.Login(context.Background(), "alice", "pw", "fp-1", ""); !errors.Is(err, auth.ErrDisabled) {
		t.Fatalf("login after disable should fail with ErrDisabled, got %v", err)
	}
}

func TestReactivateUser(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, "")
	if err := f.svc.DisableUser(context.Background(), "admin-1", created.ID, ""); err != nil {
		t.Fatalf("DisableUser: %v", err)
	}
	if err := f.svc.ReactivateUser(context.Background(), "admin-1", created.ID, ""); err != nil {
		t.Fatalf("ReactivateUser: %v", err)
	}
	u, _ := f.users.GetByID(context.Background(), created.ID)
	if !u.IsActive {
		t.Error("user should be active after reactivation")
	}
}

func TestRenewUser_RestartsWindowFromNow(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	// Expiry far in the future; renewal recomputes from the type, not from it.
	generous := time.Now().UTC().AddDate(0, 0, 100)
	if err := f.users.UpdateExpiry(context.Background(), created.ID, &generous); err != nil {
		t.Fatalf("UpdateExpiry: %v", err)
	}

	newExpiry, err := f.svc.RenewUser(context.Background(), "admin-1", created.ID, "")
	if err != nil {
		t.Fatalf("RenewUser: %v", err)
	}
	if newExpiry == nil {
		t.Fatal("trial renewal should produce an expiry")
	}
	want := time.Now().UTC().AddDate(0, 0, 30)
	if diff := newExpiry.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("new expiry = %v, want ~%v (now + type duration)", newExpiry, want)
	}
}

func TestRenewUser_FromLapsedExpiry(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	lapsed := time.Now().UTC().AddDate(0, 0, -10)
	if err := f.users.UpdateExpiry(context.Background(), created.ID, &lapsed); err != nil {
		t.Fatalf("UpdateExpiry: %v", err)
	}

	newExpiry, err := f.svc.RenewUser(context.Background(), "admin-1", created.ID, "")
	if err != nil {
		t.Fatalf("RenewUser: %v", err)
	}
	want := time.Now().UTC().AddDate(0, 0, 30)
	if diff := newExpiry.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("new expiry = %v, want ~%v", newExpiry, want)
	}
}

func TestRenewUser_UnlimitedTypeClearsExpiry(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "bob", "pw", accounttypedomain.NamePaid, "")
	stale := time.Now().UTC().AddDate(0, 0, 5)
	if err := f.users.UpdateExpiry(context.Background(), created.ID, &stale); err != nil {
		t.Fatalf("UpdateExpiry: %v", err)
	}

	newExpiry, err := f.svc.RenewUser(context.Background(), "admin-1", created.ID, "")
	if err != nil {
		t.Fatalf("RenewUser: %v", err)
	}
	if newExpiry != nil {
		t.Errorf("paid renewal expiry = %v, want nil (unlimited)", newExpiry)
	}
	u, _ := f.users.GetByID(context.Background(), created.ID)
	if u.ExpiresAt != nil {
		t.Errorf("stored expiry = %v, want nil", u.ExpiresAt)
	}
}

func TestExtendUser_FromFutureExpiry(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")

	newExpiry, err := f.svc.ExtendUser(context.Background(), "admin-1", created.ID, 30, "")
	if err != nil {
		t.Fatalf("ExtendUser: %v", err)
	}
	// 30 days of trial remaining plus 30 added.
	want := time.Now().UTC().AddDate(0, 0, 60)
	if diff := newExpiry.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("new expiry = %v, want ~%v", newExpiry, want)
	}
}

func TestExtendUser_FromLapsedExpiry(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	lapsed := time.Now().UTC().AddDate(0, 0, -10)
	if err := f.users.UpdateExpiry(context.Background(), created.ID, &lapsed); err != nil {
		t.Fatalf("UpdateExpiry: %v", err)
	}

	newExpiry, err := f.svc.ExtendUser(context.Background(), "admin-1", created.ID, 30, "")
	if err != nil {
		t.Fatalf("ExtendUser: %v", err)
	}
	// Lapsed accounts extend from now, not the stale expiry.
	want := time.Now().UTC().AddDate(0, 0, 30)
	if diff := newExpiry.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("new expiry = %v, want ~%v", newExpiry, want)
	}
}

func TestExtendUser_RejectsNonPositiveDays(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")
	if _, err := f.svc.ExtendUser(context.Background(), "admin-1", created.ID, 0, ""); err == nil {
		t.Fatal("expected error for zero days")
	}
}

func TestCreateUser_StoreError(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = errors.New("connection refused")
	_, err := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, "")
	if !errors.Is(err, auth.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestChangeAccountType(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NameTrial, "")

	if err := f.svc.ChangeAccountType(context.Background(), "admin-1", created.ID, accounttypedomain.NamePaid, ""); err != nil {
		t.Fatalf("ChangeAccountType: %v", err)
	}
	u, _ := f.users.GetByID(context.Background(), created.ID)
	if u.AccountTypeID != "at-paid" {
		t.Errorf("account type = %q, want at-paid", u.AccountTypeID)
	}
	if u.ExpiresAt != nil {
		t.Errorf("expiry = %v, want nil after moving to unlimited type", u.ExpiresAt)
	}
}

func TestResetDevice_AllowsNewHardware(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, "")
	authSvc := f.newAuthService()
	if _, err := authSvc.Login(context.Background(), "alice", "pw", "fp-old", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := authSvc.Login(context.Background(), "alice", "pw", "fp-new", ""); !errors.Is(err, auth.ErrDeviceMismatch) {
		t.Fatalf("new device should be rejected before reset, got %v", err)
	}

	if err := f.svc.ResetDevice(context.Background(), "admin-1", created.ID, ""); err != nil {
		t.Fatalf("ResetDevice: %v", err)
	}
	if _, err := authSvc.Login(context.Background(), "alice", "pw", "fp-new", ""); err != nil {
		t.Fatalf("new device should bind after reset: %v", err)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.CreateUser(context.Background(), "admin-1", "alice", "pw", accounttypedomain.NamePaid, "")
	authSvc := f.newAuthService()
	res, err := authSvc.Login(context.Background(), "alice", "pw", "fp-1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.RevokeUserSessions(context.Background(), "admin-1", created.ID, ""); err != nil {
		t.Fatalf("RevokeUserSessions: %v", err)
	}
	if _, err := authSvc.Validate(context.Background(), res.SessionToken); !errors.Is(err, auth.ErrSessionInvalid) {
		t.Fatalf("session should be invalid after revocation, got %v", err)
	}
}

func TestMutations_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.DisableUser(ctx, "admin-1", "no-such-user", ""); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("DisableUser: want ErrNotFound, got %v", err)
	}
	if _, err := f.svc.RenewUser(ctx, "admin-1", "no-such-user", ""); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("RenewUser: want ErrNotFound, got %v", err)
	}
	if _, err := f.svc.ExtendUser(ctx, "admin-1", "no-such-user", 30, ""); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("ExtendUser: want ErrNotFound, got %v", err)
	}
	if err := f.svc.ResetDevice(ctx, "admin-1", "no-such-user", ""); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("ResetDevice: want ErrNotFound, got %v", err)
	}
}
