package authevent

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"license-auth/backend/internal/auth"
	"license-auth/backend/internal/authevent/domain"
	eventrepo "license-auth/backend/internal/authevent/repository"
)

// Emitter publishes recorded events to an external stream (e.g. Kafka).
// Best-effort; callers log and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}

// Recorder appends authentication events to the database and, when a stream
// emitter is configured, publishes them asynchronously. Both paths are
// best-effort: a failed append is logged and reported as
// auth.ErrRecordingFailed for monitoring, but callers must not fail the
// authentication outcome because of it.
type Recorder struct {
	repo    eventrepo.Repository
	emitter Emitter
}

// NewRecorder returns a Recorder that persists to repo. emitter may be nil
// when no event stream is configured.
func NewRecorder(repo eventrepo.Repository, emitter Emitter) *Recorder {
	return &Recorder{repo: repo, emitter: emitter}
}

// Record writes one auth event. The event's ID and Timestamp are assigned
// here. Returns auth.ErrRecordingFailed if the append could not be persisted;
// the stream publish never affects the return value.
func (r *Recorder) Record(ctx context.Context, event *domain.AuthEvent) error {
	if r == nil || r.repo == nil || event == nil {
		return nil
	}
	event.ID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	if err := r.repo.Create(ctx, event); err != nil {
		log.Printf("authevent: failed to record %s event: %v", event.EventType, err)
		return auth.ErrRecordingFailed
	}
	EmitAsync(r.emitter, ctx, event)
	return nil
}
