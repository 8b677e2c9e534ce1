package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"license-auth/backend/internal/audit/domain"
	auditrepo "license-auth/backend/internal/audit/repository"
	"license-auth/backend/internal/auth"
)

// Logger writes a single audit entry per administrative action. Appends are
// best-effort: a failure is logged and reported as auth.ErrRecordingFailed for
// monitoring, but callers must not fail the admin action because of it.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogAction writes one audit log entry. Returns auth.ErrRecordingFailed if the
// append could not be persisted; nil otherwise.
func (l *Logger) LogAction(ctx context.Context, adminID, action, targetType, targetID, details, ip string) error {
	if l == nil || l.repo == nil {
		return nil
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		IPAddress:  ip,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log action %s on %s/%s: %v", action, targetType, targetID, err)
		return auth.ErrRecordingFailed
	}
	return nil
}
