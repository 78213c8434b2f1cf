package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/classhour/scheduling/internal/booking"
	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/timegrid"
)

type stubService struct {
	slots    []timegrid.Slot
	appt     *model.Appointment
	appts    []model.Appointment
	err      error
	lastBook booking.BookRequest
}

func (s *stubService) ResolveAvailableSlots(_ context.Context, _, _ string, _ time.Time, _ int) ([]timegrid.Slot, error) {
	return s.slots, s.err
}

func (s *stubService) Book(_ context.Context, req booking.BookRequest) (*model.Appointment, error) {
	s.lastBook = req
	return s.appt, s.err
}

func (s *stubService) Approve(_ context.Context, _, _ string) (*model.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) Cancel(_ context.Context, _, _, _ string) (*model.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) ListByTeacher(_ context.Context, _ string, _ time.Time) ([]model.Appointment, error) {
	return s.appts, s.err
}

func (s *stubService) ListByStudent(_ context.Context, _ string, _ time.Time) ([]model.Appointment, error) {
	return s.appts, s.err
}

func newTestHandler(svc *stubService) *SchedulingHandler {
	return NewSchedulingHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleAppointment() *model.Appointment {
	created := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	return &model.Appointment{
		ID:          "a1",
		StudentID:   "s1",
		TeacherID:   "t1",
		SlotDate:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		StartMinute: 600,
		EndMinute:   660,
		Status:      model.StatusPending,
		CreatedBy:   model.RoleStudent,
		CreatedAt:   created,
	}
}

func TestSlots(t *testing.T) {
	svc := &stubService{slots: []timegrid.Slot{{Start: 540, End: 600}, {Start: 660, End: 720}}}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?teacher_id=t1&student_id=s1&date=2026-03-09", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Slots []slotItem `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Slots) != 2 || body.Slots[0].Start != "09:00" || body.Slots[1].End != "12:00" {
		t.Fatalf("unexpected slots: %+v", body.Slots)
	}
}

func TestSlots_BadRequest(t *testing.T) {
	h := newTestHandler(&stubService{})

	cases := []struct {
		name string
		url  string
	}{
		{"missing ids", "/api/v1/slots?date=2026-03-09"},
		{"bad date", "/api/v1/slots?teacher_id=t1&student_id=s1&date=tomorrow"},
		{"bad duration", "/api/v1/slots?teacher_id=t1&student_id=s1&date=2026-03-09&duration=zero"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Slots(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreateAppointment(t *testing.T) {
	svc := &stubService{appt: sampleAppointment()}
	h := newTestHandler(svc)

	body := `{"student_id":"s1","teacher_id":"t1","date":"2026-03-09","start":"10:00","end":"11:00","purpose":"algebra","initiator":"student"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastBook.Slot.Start != 600 || svc.lastBook.Slot.End != 660 {
		t.Fatalf("slot not parsed: %+v", svc.lastBook.Slot)
	}
	if svc.lastBook.Initiator != model.RoleStudent {
		t.Fatalf("initiator not forwarded: %q", svc.lastBook.Initiator)
	}

	var item appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.AppointmentID != "a1" || item.Status != "pending" || item.Start != "10:00" {
		t.Fatalf("unexpected response: %+v", item)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", booking.ErrValidation, http.StatusBadRequest},
		{"not found", booking.ErrNotFound, http.StatusNotFound},
		{"conflict", booking.ErrConflict, http.StatusConflict},
		{"terminal", booking.ErrAlreadyTerminal, http.StatusConflict},
		{"internal", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&stubService{err: tc.err})
			body := `{"student_id":"s1","teacher_id":"t1","date":"2026-03-09","start":"10:00","end":"11:00","initiator":"student"}`
			rec := httptest.NewRecorder()
			h.Appointments(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestApproveAndCancel(t *testing.T) {
	appt := sampleAppointment()
	appt.Status = model.StatusApproved
	h := newTestHandler(&stubService{appt: appt})

	rec := httptest.NewRecorder()
	h.Approve(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/approve",
		strings.NewReader(`{"appointment_id":"a1","approver_id":"t1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Cancel(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel",
		strings.NewReader(`{"appointment_id":"a1","actor_id":"t1","reason":"sick"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Approve(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments/approve", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestListAppointments(t *testing.T) {
	h := newTestHandler(&stubService{appts: []model.Appointment{*sampleAppointment()}})

	rec := httptest.NewRecorder()
	h.Appointments(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments?teacher_id=t1&date=2026-03-09", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Appointments []appointmentItem `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Appointments) != 1 || body.Appointments[0].TeacherID != "t1" {
		t.Fatalf("unexpected list: %+v", body.Appointments)
	}

	rec = httptest.NewRecorder()
	h.Appointments(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments?date=2026-03-09", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without participant id, got %d", rec.Code)
	}
}
