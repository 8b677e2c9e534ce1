package audit

import (
	"context"
	"errors"
	"testing"

	"license-auth/backend/internal/audit/domain"
	"license-auth/backend/internal/auth"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByAdmin(ctx context.Context, adminID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogAction(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)

	err := logger.LogAction(context.Background(), "admin-1", "create_user", "user", "u1", `{"account_type":"trial"}`, "192.168.1.1")
	if err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.AdminID != "admin-1" {
		t.Errorf("admin_id = %q, want %q", entry.AdminID, "admin-1")
	}
	if entry.Action != "create_user" {
		t.Errorf("action = %q, want %q", entry.Action, "create_user")
	}
	if entry.TargetType != "user" || entry.TargetID != "u1" {
		t.Errorf("target = %q/%q, want user/u1", entry.TargetType, entry.TargetID)
	}
	if entry.ID == "" {
		t.Error("entry ID should be generated")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestLogger_LogAction_RepoError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo)

	err := logger.LogAction(context.Background(), "admin-1", "disable_user", "user", "u1", "", "")
	if !errors.Is(err, auth.ErrRecordingFailed) {
		t.Fatalf("want ErrRecordingFailed, got %v", err)
	}
}

func TestLogger_NilRepo(t *testing.T) {
	logger := NewLogger(nil)
	if err := logger.LogAction(context.Background(), "a", "b", "c", "d", "", ""); err != nil {
		t.Fatalf("nil repo should be a no-op, got %v", err)
	}
}
