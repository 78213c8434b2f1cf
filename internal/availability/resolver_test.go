package availability

import (
	"testing"
	"time"

	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/timegrid"
)

var testDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func minutes(v int) *int { return &v }

func actorWithWindow(id string, role model.Role, start, end int) model.Actor {
	return model.Actor{
		ID:          id,
		Role:        role,
		WindowStart: minutes(start),
		WindowEnd:   minutes(end),
	}
}

func booking(teacherID, studentID string, start, end int, status model.Status) model.Appointment {
	return model.Appointment{
		TeacherID:   teacherID,
		StudentID:   studentID,
		SlotDate:    testDate,
		StartMinute: start,
		EndMinute:   end,
		Status:      status,
	}
}

func TestResolve_AsymmetricBlockingPolicy(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 12*60)
	student := actorWithWindow("s1", model.RoleStudent, 9*60, 12*60)

	// A pending request does not consume teacher capacity...
	teacherBookings := []model.Appointment{
		booking("t1", "other-student", 10*60, 11*60, model.StatusPending),
	}
	got := Resolve(teacher, student, teacherBookings, nil, testDate, 60)
	if len(got) != 3 {
		t.Fatalf("pending should not block teacher side: expected 3 slots, got %d", len(got))
	}

	// ...but a student's own pending request blocks their side.
	studentBookings := []model.Appointment{
		booking("t2", "s1", 10*60, 11*60, model.StatusPending),
	}
	got = Resolve(teacher, student, nil, studentBookings, testDate, 60)
	want := []timegrid.Slot{
		{Start: 9 * 60, End: 10 * 60},
		{Start: 11 * 60, End: 12 * 60},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolve_RejectedNeverBlocks(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 11*60)
	student := actorWithWindow("s1", model.RoleStudent, 9*60, 11*60)

	rejected := []model.Appointment{
		booking("t1", "s1", 9*60, 10*60, model.StatusRejected),
	}
	got := Resolve(teacher, student, rejected, rejected, testDate, 60)
	if len(got) != 2 {
		t.Fatalf("rejected appointments should not block: expected 2 slots, got %d", len(got))
	}
}

func TestResolve_IntersectionIsSubsetOfBothGrids(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 14*60)
	student := actorWithWindow("s1", model.RoleStudent, 11*60, 17*60)

	got := Resolve(teacher, student, nil, nil, testDate, 60)

	inGrid := func(grid []timegrid.Slot, s timegrid.Slot) bool {
		for _, g := range grid {
			if g == s {
				return true
			}
		}
		return false
	}
	teacherGrid := timegrid.Generate(9*60, 14*60, 60)
	studentGrid := timegrid.Generate(11*60, 17*60, 60)
	for _, s := range got {
		if !inGrid(teacherGrid, s) {
			t.Fatalf("slot %s not in teacher grid", s)
		}
		if !inGrid(studentGrid, s) {
			t.Fatalf("slot %s not in student grid", s)
		}
	}
	// Overlapping region 11:00-14:00 with aligned grids.
	if len(got) != 3 {
		t.Fatalf("expected 3 mutual slots, got %d", len(got))
	}
}

func TestResolve_ShrinksMonotonically(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 12*60)
	student := actorWithWindow("s1", model.RoleStudent, 9*60, 12*60)

	base := Resolve(teacher, student, nil, nil, testDate, 60)

	extra := []model.Appointment{
		booking("t1", "s2", 9*60, 10*60, model.StatusApproved),
	}
	narrowed := Resolve(teacher, student, extra, nil, testDate, 60)
	if len(narrowed) >= len(base) {
		t.Fatalf("adding a blocking appointment should shrink the result: %d -> %d", len(base), len(narrowed))
	}
	for _, s := range narrowed {
		found := false
		for _, b := range base {
			if b == s {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("narrowed result contains slot %s absent from base", s)
		}
	}
}

func TestResolve_MissingWindowYieldsEmpty(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 12*60)
	noWindow := model.Actor{ID: "s1", Role: model.RoleStudent}

	if got := Resolve(teacher, noWindow, nil, nil, testDate, 60); got != nil {
		t.Fatalf("student without window: expected empty, got %v", got)
	}
	if got := Resolve(noWindow, teacher, nil, nil, testDate, 60); got != nil {
		t.Fatalf("teacher without window: expected empty, got %v", got)
	}
}

func TestResolve_MisalignedGridsDoNotIntersect(t *testing.T) {
	teacher := actorWithWindow("t1", model.RoleTeacher, 9*60, 12*60)
	student := actorWithWindow("s1", model.RoleStudent, 9*60+30, 12*60+30)

	// Slots intersect by exact (start, end) equality; offset grids share none.
	if got := Resolve(teacher, student, nil, nil, testDate, 60); len(got) != 0 {
		t.Fatalf("misaligned grids should share no slots, got %v", got)
	}
}
