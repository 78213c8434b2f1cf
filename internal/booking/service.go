package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/classhour/scheduling/internal/availability"
	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/outbox"
	"github.com/classhour/scheduling/internal/timegrid"
)

// Audit strings written on automatic rejections.
const (
	ReasonTeacherBooked = "slot booked by teacher"
	ReasonExpired       = "expired"
	SystemActor         = "system"
)

// Service is the scheduling core. It holds no mutable state of its own;
// everything lives in the injected store, and every call re-reads current
// data rather than trusting anything cached from a previous call.
type Service struct {
	store  Store
	actors ActorDirectory
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(store Store, actors ActorDirectory, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		actors: actors,
		logger: logger,
		clock:  time.Now,
	}
}

type BookRequest struct {
	StudentID string
	TeacherID string
	Date      time.Time
	Slot      timegrid.Slot
	Purpose   string
	Initiator model.Role
}

// ResolveAvailableSlots returns the mutually free slots for a teacher and
// student on a date. Read-only; an empty result is a valid answer, not an
// error.
func (s *Service) ResolveAvailableSlots(ctx context.Context, teacherID, studentID string, date time.Time, durationMinutes int) ([]timegrid.Slot, error) {
	if teacherID == "" || studentID == "" {
		return nil, fmt.Errorf("%w: teacher and student ids are required", ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	teacher, err := s.getActor(ctx, teacherID, model.RoleTeacher)
	if err != nil {
		return nil, err
	}
	student, err := s.getActor(ctx, studentID, model.RoleStudent)
	if err != nil {
		return nil, err
	}

	date = dateOnly(date)
	teacherBookings, err := s.store.ListByTeacherAndDate(ctx, teacherID, date)
	if err != nil {
		return nil, fmt.Errorf("list teacher bookings: %w", err)
	}
	studentBookings, err := s.store.ListByStudentAndDate(ctx, studentID, date)
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}

	return availability.Resolve(teacher, student, teacherBookings, studentBookings, date, durationMinutes), nil
}

// Book validates and atomically creates an appointment. Student-initiated
// bookings start pending; teacher-initiated bookings are approved on the
// spot and reject every competing pending request for the same slot within
// the same transaction. Two concurrent calls for the identical
// (teacher, date, slot) cannot both end approved: the store's uniqueness
// constraint serializes them and the loser sees ErrConflict.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if err := s.validateBookRequest(req); err != nil {
		return nil, err
	}

	teacher, err := s.getActor(ctx, req.TeacherID, model.RoleTeacher)
	if err != nil {
		return nil, err
	}
	student, err := s.getActor(ctx, req.StudentID, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	if req.Initiator == model.RoleStudent && !student.BookingApproved {
		return nil, fmt.Errorf("%w: student %s is not approved for booking", ErrValidation, student.ID)
	}

	now := s.clock().UTC()
	appt := &model.Appointment{
		ID:          uuid.NewString(),
		StudentID:   student.ID,
		TeacherID:   teacher.ID,
		SlotDate:    dateOnly(req.Date),
		StartMinute: req.Slot.Start,
		EndMinute:   req.Slot.End,
		Purpose:     req.Purpose,
		Status:      model.StatusPending,
		CreatedBy:   req.Initiator,
		CreatedAt:   now,
	}
	if req.Initiator == model.RoleTeacher {
		appt.Status = model.StatusApproved
		appt.ApprovedAt = &now
		appt.ApprovedBy = teacher.ID
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Re-check inside the transaction: the availability the caller saw may
	// be stale by now.
	taken, err := tx.ApprovedExists(ctx, appt.TeacherID, appt.SlotDate, req.Slot)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return nil, ErrConflict
	}

	if err := tx.Insert(ctx, appt); err != nil {
		return nil, err
	}

	eventType := outbox.EventAppointmentRequested
	if appt.Status == model.StatusApproved {
		eventType = outbox.EventAppointmentBooked
		rejected, err := tx.RejectPendingSiblings(ctx, appt.TeacherID, appt.SlotDate, req.Slot, appt.ID, ReasonTeacherBooked, now)
		if err != nil {
			return nil, fmt.Errorf("reject pending siblings: %w", err)
		}
		for _, sib := range rejected {
			if err := s.appendLifecycleEvent(ctx, tx, outbox.EventAppointmentRejected, sib); err != nil {
				return nil, err
			}
		}
	}
	if err := s.appendLifecycleEvent(ctx, tx, eventType, *appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"teacher_id", appt.TeacherID,
		"student_id", appt.StudentID,
		"date", appt.SlotDate.Format("2006-01-02"),
		"slot", appt.Slot().String(),
		"status", string(appt.Status),
	)
	return appt, nil
}

// Approve moves a pending appointment to approved and rejects its pending
// siblings for the same slot. If a competitor was approved first, the
// store's uniqueness constraint fails the update with ErrConflict instead
// of silently overwriting.
func (s *Service) Approve(ctx context.Context, appointmentID, approverID string) (*model.Appointment, error) {
	if appointmentID == "" || approverID == "" {
		return nil, fmt.Errorf("%w: appointment and approver ids are required", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := tx.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyTerminal, appt.Status)
	}
	if appt.TeacherID != approverID {
		return nil, fmt.Errorf("%w: only the assigned teacher can approve", ErrValidation)
	}

	now := s.clock().UTC()
	if err := tx.MarkApproved(ctx, appt.ID, approverID, now); err != nil {
		return nil, err
	}
	appt.Status = model.StatusApproved
	appt.ApprovedAt = &now
	appt.ApprovedBy = approverID

	rejected, err := tx.RejectPendingSiblings(ctx, appt.TeacherID, appt.SlotDate, appt.Slot(), appt.ID, ReasonTeacherBooked, now)
	if err != nil {
		return nil, fmt.Errorf("reject pending siblings: %w", err)
	}
	for _, sib := range rejected {
		if err := s.appendLifecycleEvent(ctx, tx, outbox.EventAppointmentRejected, sib); err != nil {
			return nil, err
		}
	}
	if err := s.appendLifecycleEvent(ctx, tx, outbox.EventAppointmentApproved, appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment approved",
		"appointment_id", appt.ID,
		"teacher_id", appt.TeacherID,
		"rejected_siblings", len(rejected),
	)
	return &appt, nil
}

// Cancel rejects a pending or approved appointment. Rejected is terminal.
// Cancelling never resurrects competing pending requests; they stay pending
// until approved or swept.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorID, reason string) (*model.Appointment, error) {
	if appointmentID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: appointment and actor ids are required", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := tx.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Terminal() {
		return nil, fmt.Errorf("%w: already rejected", ErrAlreadyTerminal)
	}
	if actorID != appt.TeacherID && actorID != appt.StudentID {
		return nil, fmt.Errorf("%w: actor %s is not a participant", ErrValidation, actorID)
	}

	now := s.clock().UTC()
	if err := tx.MarkRejected(ctx, appt.ID, actorID, reason, now); err != nil {
		return nil, err
	}
	appt.Status = model.StatusRejected
	appt.CancelledAt = &now
	appt.CancelledBy = actorID
	appt.CancellationReason = reason

	if err := s.appendLifecycleEvent(ctx, tx, outbox.EventAppointmentCancelled, appt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment cancelled",
		"appointment_id", appt.ID,
		"cancelled_by", actorID,
	)
	return &appt, nil
}

// SweepExpiredPending rejects every pending appointment whose date has
// passed. Idempotent: a second run over the same day transitions nothing.
func (s *Service) SweepExpiredPending(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		return 0, fmt.Errorf("%w: as-of date is required", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expired, err := tx.ExpirePending(ctx, dateOnly(asOf), s.clock().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending: %w", err)
	}
	for _, appt := range expired {
		if err := s.appendLifecycleEvent(ctx, tx, outbox.EventAppointmentExpired, appt); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if len(expired) > 0 {
		s.logger.Info("expired pending appointments swept", "count", len(expired))
	}
	return len(expired), nil
}

// ListByTeacher returns a teacher's appointments on a date, any status.
func (s *Service) ListByTeacher(ctx context.Context, teacherID string, date time.Time) ([]model.Appointment, error) {
	if teacherID == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: teacher id and date are required", ErrValidation)
	}
	return s.store.ListByTeacherAndDate(ctx, teacherID, dateOnly(date))
}

// ListByStudent returns a student's appointments on a date, any status.
func (s *Service) ListByStudent(ctx context.Context, studentID string, date time.Time) ([]model.Appointment, error) {
	if studentID == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: student id and date are required", ErrValidation)
	}
	return s.store.ListByStudentAndDate(ctx, studentID, dateOnly(date))
}

func (s *Service) validateBookRequest(req BookRequest) error {
	if req.StudentID == "" || req.TeacherID == "" {
		return fmt.Errorf("%w: student and teacher ids are required", ErrValidation)
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if !req.Slot.Valid() {
		return fmt.Errorf("%w: slot %s is malformed", ErrValidation, req.Slot)
	}
	if req.Initiator != model.RoleStudent && req.Initiator != model.RoleTeacher {
		return fmt.Errorf("%w: unknown initiator role %q", ErrValidation, req.Initiator)
	}
	return nil
}

func (s *Service) getActor(ctx context.Context, id string, want model.Role) (model.Actor, error) {
	actor, err := s.actors.GetActor(ctx, id)
	if err != nil {
		return model.Actor{}, err
	}
	if actor.Deleted {
		return model.Actor{}, fmt.Errorf("%w: actor %s", ErrNotFound, id)
	}
	if actor.Role != want {
		return model.Actor{}, fmt.Errorf("%w: actor %s is not a %s", ErrValidation, id, want)
	}
	return actor, nil
}

func (s *Service) appendLifecycleEvent(ctx context.Context, tx Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"teacher_id":     appt.TeacherID,
		"student_id":     appt.StudentID,
		"date":           appt.SlotDate.Format("2006-01-02"),
		"start":          timegrid.FormatClock(appt.StartMinute),
		"end":            timegrid.FormatClock(appt.EndMinute),
		"status":         string(appt.Status),
		"reason":         appt.CancellationReason,
	})
	if err != nil {
		return fmt.Errorf("build event payload: %w", err)
	}
	if err := tx.AppendEvent(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
