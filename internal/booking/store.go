package booking

import (
	"context"
	"time"

	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/outbox"
	"github.com/classhour/scheduling/internal/timegrid"
)

// ActorDirectory resolves participants against the portal's user store.
// Implementations must treat soft-deleted actors as absent.
type ActorDirectory interface {
	GetActor(ctx context.Context, id string) (model.Actor, error)
}

// Store is the appointment store handle injected into the service. The
// service never caches appointment state between calls; every availability
// computation re-reads current data through these methods.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	ListByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) ([]model.Appointment, error)
	ListByStudentAndDate(ctx context.Context, studentID string, date time.Time) ([]model.Appointment, error)
}

// Tx is one atomic unit of appointment mutation. Implementations must make
// Insert and MarkApproved fail with ErrConflict when they would produce a
// second approved appointment for the same (teacher, date, slot); that
// constraint, not application-level locking, is what serializes concurrent
// bookings.
type Tx interface {
	// ApprovedExists re-checks for a committed approved appointment on the
	// exact (teacher, date, slot) triple inside the transaction.
	ApprovedExists(ctx context.Context, teacherID string, date time.Time, slot timegrid.Slot) (bool, error)

	Insert(ctx context.Context, appt *model.Appointment) error

	// GetForUpdate loads an appointment and locks its row for the duration
	// of the transaction. Returns ErrNotFound for unknown ids.
	GetForUpdate(ctx context.Context, id string) (model.Appointment, error)

	MarkApproved(ctx context.Context, id, approverID string, at time.Time) error
	MarkRejected(ctx context.Context, id, actorID, reason string, at time.Time) error

	// RejectPendingSiblings transitions every other pending appointment on
	// the same (teacher, date, slot) triple to rejected and returns the
	// transitioned rows.
	RejectPendingSiblings(ctx context.Context, teacherID string, date time.Time, slot timegrid.Slot, excludeID, reason string, at time.Time) ([]model.Appointment, error)

	// ExpirePending rejects every pending appointment dated before asOf and
	// returns the transitioned rows. A second run over the same data
	// transitions nothing.
	ExpirePending(ctx context.Context, asOf time.Time, at time.Time) ([]model.Appointment, error)

	// AppendEvent records a lifecycle event atomically with the mutation.
	AppendEvent(ctx context.Context, evt outbox.Event) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
