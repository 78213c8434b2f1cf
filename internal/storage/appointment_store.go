package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/classhour/scheduling/internal/booking"
	"github.com/classhour/scheduling/internal/db"
	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/outbox"
	"github.com/classhour/scheduling/internal/timegrid"
)

const appointmentColumns = `
	id::text, student_id::text, teacher_id::text, slot_date, start_minute, end_minute,
	purpose, status, created_by,
	approved_at, COALESCE(approved_by::text, ''),
	cancelled_at, COALESCE(cancelled_by, ''), COALESCE(cancellation_reason, ''),
	created_at`

// AppointmentStore is the pgx-backed booking.Store. The partial unique
// index on (teacher_id, slot_date, start_minute, end_minute) for approved
// rows is the serialization point for concurrent bookings; unique
// violations surface as booking.ErrConflict.
type AppointmentStore struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewAppointmentStore(pool *db.Pool, events *outbox.Repository) *AppointmentStore {
	return &AppointmentStore{pool: pool, events: events}
}

func (s *AppointmentStore) Begin(ctx context.Context) (booking.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &appointmentTx{tx: tx, events: s.events}, nil
}

func (s *AppointmentStore) ListByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE teacher_id = $1 AND slot_date = $2
		ORDER BY start_minute ASC, created_at ASC
	`, teacherID, date)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *AppointmentStore) ListByStudentAndDate(ctx context.Context, studentID string, date time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE student_id = $1 AND slot_date = $2
		ORDER BY start_minute ASC, created_at ASC
	`, studentID, date)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

type appointmentTx struct {
	tx     pgx.Tx
	events *outbox.Repository
}

func (t *appointmentTx) ApprovedExists(ctx context.Context, teacherID string, date time.Time, slot timegrid.Slot) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE teacher_id = $1 AND slot_date = $2
				AND start_minute = $3 AND end_minute = $4
				AND status = 'approved'
		)
	`, teacherID, date, slot.Start, slot.End).Scan(&exists)
	return exists, err
}

func (t *appointmentTx) Insert(ctx context.Context, appt *model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, student_id, teacher_id, slot_date, start_minute, end_minute,
			 purpose, status, created_by, approved_at, approved_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::uuid, $12)
	`, appt.ID, appt.StudentID, appt.TeacherID, appt.SlotDate, appt.StartMinute, appt.EndMinute,
		appt.Purpose, appt.Status, appt.CreatedBy, appt.ApprovedAt, appt.ApprovedBy, appt.CreatedAt)
	return mapError(err)
}

func (t *appointmentTx) GetForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", booking.ErrNotFound, id)
	}
	return appt, err
}

func (t *appointmentTx) MarkApproved(ctx context.Context, id, approverID string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'approved',
			approved_at = $2,
			approved_by = $3
		WHERE id = $1
	`, id, at, approverID)
	return mapError(err)
}

func (t *appointmentTx) MarkRejected(ctx context.Context, id, actorID, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'rejected',
			cancelled_at = $2,
			cancelled_by = $3,
			cancellation_reason = $4
		WHERE id = $1
	`, id, at, actorID, reason)
	return err
}

func (t *appointmentTx) RejectPendingSiblings(ctx context.Context, teacherID string, date time.Time, slot timegrid.Slot, excludeID, reason string, at time.Time) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE appointments
		SET status = 'rejected',
			cancelled_at = $5,
			cancelled_by = $1::text,
			cancellation_reason = $7
		WHERE teacher_id = $1 AND slot_date = $2
			AND start_minute = $3 AND end_minute = $4
			AND status = 'pending'
			AND id <> $6
		RETURNING `+appointmentColumns+`
	`, teacherID, date, slot.Start, slot.End, at, excludeID, reason)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (t *appointmentTx) ExpirePending(ctx context.Context, asOf time.Time, at time.Time) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE appointments
		SET status = 'rejected',
			cancelled_at = $2,
			cancelled_by = $3,
			cancellation_reason = $4
		WHERE status = 'pending' AND slot_date < $1
		RETURNING `+appointmentColumns+`
	`, asOf, at, booking.SystemActor, booking.ReasonExpired)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (t *appointmentTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.events.Insert(ctx, t.tx, evt)
}

func (t *appointmentTx) Commit(ctx context.Context) error {
	return mapError(t.tx.Commit(ctx))
}

func (t *appointmentTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// mapError folds unique and exclusion violations into booking.ErrConflict.
// The partial unique index fires on a second approved row for the same
// teacher slot, which is exactly the double-booking case.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01") {
		return fmt.Errorf("%w: %s", booking.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var approvedAt, cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.StudentID,
		&appt.TeacherID,
		&appt.SlotDate,
		&appt.StartMinute,
		&appt.EndMinute,
		&appt.Purpose,
		&appt.Status,
		&appt.CreatedBy,
		&approvedAt,
		&appt.ApprovedBy,
		&cancelledAt,
		&appt.CancelledBy,
		&appt.CancellationReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.ApprovedAt = approvedAt
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
