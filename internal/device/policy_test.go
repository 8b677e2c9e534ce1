package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	"license-auth/backend/internal/auth"
	devicedomain "license-auth/backend/internal/device/domain"
	userdomain "license-auth/backend/internal/user/domain"
)

type memBinder struct {
	mu           sync.Mutex
	fingerprints map[string]string // user id -> bound fingerprint
}

func (b *memBinder) BindFingerprint(ctx context.Context, id, fingerprint string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fingerprints == nil {
		b.fingerprints = map[string]string{}
	}
	current, ok := b.fingerprints[id]
	if !ok || current == fingerprint {
		b.fingerprints[id] = fingerprint
		return true, nil
	}
	return false, nil
}

type memSetBinder struct {
	mu   sync.Mutex
	sets map[string][]string
}

func (b *memSetBinder) BindWithinLimit(ctx context.Context, d *devicedomain.Device, maxDevices int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sets == nil {
		b.sets = map[string][]string{}
	}
	set := b.sets[d.UserID]
	for _, fp := range set {
		if fp == d.Fingerprint {
			return true, nil
		}
	}
	if len(set) >= maxDevices {
		return false, nil
	}
	b.sets[d.UserID] = append(set, d.Fingerprint)
	return true, nil
}

func singleDeviceType() *accounttypedomain.AccountType {
	return &accounttypedomain.AccountType{ID: "at-1", Name: accounttypedomain.NameTrial, MaxDevices: 1}
}

func testUser() *userdomain.User {
	return &userdomain.User{ID: "u1", Username: "alice", IsActive: true, CreatedAt: time.Now().UTC()}
}

func TestPolicy_FirstUseBind(t *testing.T) {
	users := &memBinder{}
	p := NewPolicy(users, &memSetBinder{})

	if err := p.BindOrCheck(context.Background(), testUser(), singleDeviceType(), "fp-1"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if users.fingerprints["u1"] != "fp-1" {
		t.Errorf("fingerprint = %q, want fp-1", users.fingerprints["u1"])
	}
}

func TestPolicy_BindIdempotent(t *testing.T) {
	users := &memBinder{}
	p := NewPolicy(users, &memSetBinder{})
	u := testUser()

	for i := 0; i < 2; i++ {
		if err := p.BindOrCheck(context.Background(), u, singleDeviceType(), "fp-1"); err != nil {
			t.Fatalf("bind %d: %v", i+1, err)
		}
	}
	if len(users.fingerprints) != 1 {
		t.Errorf("bindings = %d, want 1", len(users.fingerprints))
	}
}

func TestPolicy_Mismatch(t *testing.T) {
	users := &memBinder{}
	p := NewPolicy(users, &memSetBinder{})
	u := testUser()

	if err := p.BindOrCheck(context.Background(), u, singleDeviceType(), "fp-1"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	err := p.BindOrCheck(context.Background(), u, singleDeviceType(), "fp-2")
	if !errors.Is(err, auth.ErrDeviceMismatch) {
		t.Fatalf("second device: want ErrDeviceMismatch, got %v", err)
	}
	// The original binding must survive the rejected attempt.
	if users.fingerprints["u1"] != "fp-1" {
		t.Errorf("fingerprint = %q, want fp-1", users.fingerprints["u1"])
	}
}

func TestPolicy_BoundedSet(t *testing.T) {
	devices := &memSetBinder{}
	p := NewPolicy(&memBinder{}, devices)
	u := testUser()
	at := &accounttypedomain.AccountType{ID: "at-2", Name: "team", MaxDevices: 2}

	if err := p.BindOrCheck(context.Background(), u, at, "fp-1"); err != nil {
		t.Fatalf("bind fp-1: %v", err)
	}
	if err := p.BindOrCheck(context.Background(), u, at, "fp-2"); err != nil {
		t.Fatalf("bind fp-2: %v", err)
	}
	// Existing members stay allowed at capacity.
	if err := p.BindOrCheck(context.Background(), u, at, "fp-1"); err != nil {
		t.Fatalf("rebind fp-1: %v", err)
	}
	err := p.BindOrCheck(context.Background(), u, at, "fp-3")
	if !errors.Is(err, auth.ErrDeviceMismatch) {
		t.Fatalf("over capacity: want ErrDeviceMismatch, got %v", err)
	}
	if len(devices.sets["u1"]) != 2 {
		t.Errorf("set size = %d, want 2", len(devices.sets["u1"]))
	}
}
