package availability

import (
	"time"

	"github.com/classhour/scheduling/internal/conflict"
	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/timegrid"
)

// Resolve computes the mutually free slots for a teacher/student pair on a
// date. It is a pure read used for display; reservation happens in the
// booking transaction against current data, so this result carries no hold.
//
// Blocking is asymmetric on purpose: a teacher's capacity is only consumed
// by approved appointments, while a student is also blocked by their own
// pending requests so they are never offered a slot they already asked for.
func Resolve(teacher, student model.Actor, teacherBookings, studentBookings []model.Appointment, date time.Time, durationMinutes int) []timegrid.Slot {
	if !teacher.HasWindow() || !student.HasWindow() {
		return nil
	}

	teacherGrid := timegrid.Generate(*teacher.WindowStart, *teacher.WindowEnd, durationMinutes)
	studentGrid := timegrid.Generate(*student.WindowStart, *student.WindowEnd, durationMinutes)
	if len(teacherGrid) == 0 || len(studentGrid) == 0 {
		return nil
	}

	teacherBusy := conflict.BuildIndex(teacherBookings, date, model.StatusApproved)
	studentBusy := conflict.BuildIndex(studentBookings, date, model.StatusApproved, model.StatusPending)

	studentFree := make(map[timegrid.Slot]struct{}, len(studentGrid))
	for _, s := range studentGrid {
		if !studentBusy.Overlaps(s) {
			studentFree[s] = struct{}{}
		}
	}

	// Teacher grid is already chronological; intersecting in its order keeps
	// the result ordered without a sort.
	var out []timegrid.Slot
	for _, s := range teacherGrid {
		if teacherBusy.Overlaps(s) {
			continue
		}
		if _, ok := studentFree[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
