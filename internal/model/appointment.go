package model

import (
	"time"

	"github.com/classhour/scheduling/internal/timegrid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Appointment is a dated slot claimed between one student and one teacher.
// Rows are never deleted; lifecycle is status transitions only, with the
// audit fields recording who moved it and why.
type Appointment struct {
	ID                 string
	StudentID          string
	TeacherID          string
	SlotDate           time.Time // calendar date, midnight UTC
	StartMinute        int
	EndMinute          int
	Purpose            string
	Status             Status
	CreatedBy          Role
	ApprovedAt         *time.Time
	ApprovedBy         string
	CancelledAt        *time.Time
	CancelledBy        string
	CancellationReason string
	CreatedAt          time.Time
}

func (a Appointment) Slot() timegrid.Slot {
	return timegrid.Slot{Start: a.StartMinute, End: a.EndMinute}
}

// Terminal reports whether the appointment can accept no further transitions.
func (a Appointment) Terminal() bool {
	return a.Status == StatusRejected
}

// SameDate compares calendar dates ignoring the time-of-day component.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
