package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/classhour/scheduling/internal/booking"
	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/timegrid"
)

// SchedulingService is the slice of the booking core the HTTP layer needs.
type SchedulingService interface {
	ResolveAvailableSlots(ctx context.Context, teacherID, studentID string, date time.Time, durationMinutes int) ([]timegrid.Slot, error)
	Book(ctx context.Context, req booking.BookRequest) (*model.Appointment, error)
	Approve(ctx context.Context, appointmentID, approverID string) (*model.Appointment, error)
	Cancel(ctx context.Context, appointmentID, actorID, reason string) (*model.Appointment, error)
	ListByTeacher(ctx context.Context, teacherID string, date time.Time) ([]model.Appointment, error)
	ListByStudent(ctx context.Context, studentID string, date time.Time) ([]model.Appointment, error)
}

type SchedulingHandler struct {
	svc    SchedulingService
	logger *slog.Logger
}

func NewSchedulingHandler(svc SchedulingService, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{svc: svc, logger: logger}
}

func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/slots", h.Slots)
	mux.HandleFunc("/api/v1/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/appointments/approve", h.Approve)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
}

type bookRequest struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Purpose   string `json:"purpose"`
	Initiator string `json:"initiator"`
}

type approveRequest struct {
	AppointmentID string `json:"appointment_id"`
	ApproverID    string `json:"approver_id"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	ActorID       string `json:"actor_id"`
	Reason        string `json:"reason"`
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type appointmentItem struct {
	AppointmentID      string `json:"appointment_id"`
	StudentID          string `json:"student_id"`
	TeacherID          string `json:"teacher_id"`
	Date               string `json:"date"`
	Start              string `json:"start"`
	End                string `json:"end"`
	Purpose            string `json:"purpose,omitempty"`
	Status             string `json:"status"`
	CreatedBy          string `json:"created_by"`
	ApprovedAt         string `json:"approved_at,omitempty"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
	CancelledBy        string `json:"cancelled_by,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// Slots returns the mutually free slots for a teacher/student pair on a date.
func (h *SchedulingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	teacherID := strings.TrimSpace(q.Get("teacher_id"))
	studentID := strings.TrimSpace(q.Get("student_id"))
	if teacherID == "" || studentID == "" {
		http.Error(w, "teacher_id and student_id required", http.StatusBadRequest)
		return
	}
	date, err := parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	duration := timegrid.DefaultDurationMinutes
	if raw := strings.TrimSpace(q.Get("duration")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}
	}

	slots, err := h.svc.ResolveAvailableSlots(r.Context(), teacherID, studentID, date, duration)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			Start: timegrid.FormatClock(s.Start),
			End:   timegrid.FormatClock(s.End),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

// Appointments creates a booking on POST and lists a participant's
// appointments on GET.
func (h *SchedulingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SchedulingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	start, err := timegrid.ParseClock(req.Start)
	if err != nil {
		http.Error(w, "invalid start (want HH:MM)", http.StatusBadRequest)
		return
	}
	end, err := timegrid.ParseClock(req.End)
	if err != nil {
		http.Error(w, "invalid end (want HH:MM)", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		StudentID: strings.TrimSpace(req.StudentID),
		TeacherID: strings.TrimSpace(req.TeacherID),
		Date:      date,
		Slot:      timegrid.Slot{Start: start, End: end},
		Purpose:   strings.TrimSpace(req.Purpose),
		Initiator: model.Role(strings.TrimSpace(req.Initiator)),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(*appt))
}

func (h *SchedulingHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	teacherID := strings.TrimSpace(q.Get("teacher_id"))
	studentID := strings.TrimSpace(q.Get("student_id"))

	var appts []model.Appointment
	switch {
	case teacherID != "":
		appts, err = h.svc.ListByTeacher(r.Context(), teacherID, date)
	case studentID != "":
		appts, err = h.svc.ListByStudent(r.Context(), studentID, date)
	default:
		http.Error(w, "teacher_id or student_id required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}

func (h *SchedulingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Approve(r.Context(), strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.ApproverID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(*appt))
}

func (h *SchedulingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Cancel(r.Context(), strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.ActorID), strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(*appt))
}

func (h *SchedulingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, booking.ErrConflict):
		http.Error(w, "slot no longer available", http.StatusConflict)
	case errors.Is(err, booking.ErrAlreadyTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("scheduling request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:      a.ID,
		StudentID:          a.StudentID,
		TeacherID:          a.TeacherID,
		Date:               a.SlotDate.Format("2006-01-02"),
		Start:              timegrid.FormatClock(a.StartMinute),
		End:                timegrid.FormatClock(a.EndMinute),
		Purpose:            a.Purpose,
		Status:             string(a.Status),
		CreatedBy:          string(a.CreatedBy),
		CancelledBy:        a.CancelledBy,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.ApprovedAt != nil {
		item.ApprovedAt = a.ApprovedAt.UTC().Format(time.RFC3339)
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}
