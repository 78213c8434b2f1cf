package conflict

import (
	"time"

	"github.com/classhour/scheduling/internal/model"
	"github.com/classhour/scheduling/internal/timegrid"
)

// Index holds the occupied intervals of one actor on one date, filtered to
// the statuses the caller considers blocking.
type Index struct {
	occupied []timegrid.Slot
}

// BuildIndex filters appointments to the given date and status set and
// collects their intervals. Which statuses block is a policy decision owned
// by the caller: approved-only for a teacher's capacity, approved plus
// pending for a student's own requests.
func BuildIndex(appts []model.Appointment, date time.Time, blocking ...model.Status) *Index {
	set := make(map[model.Status]struct{}, len(blocking))
	for _, st := range blocking {
		set[st] = struct{}{}
	}

	ix := &Index{}
	for _, a := range appts {
		if !model.SameDate(a.SlotDate, date) {
			continue
		}
		if _, ok := set[a.Status]; !ok {
			continue
		}
		ix.occupied = append(ix.occupied, a.Slot())
	}
	return ix
}

// Overlaps reports whether the slot intersects any occupied interval.
// Intervals are half-open, so touching boundaries (one slot's end equals
// another's start) do not overlap.
func (ix *Index) Overlaps(slot timegrid.Slot) bool {
	for _, occ := range ix.occupied {
		if slot.Start < occ.End && slot.End > occ.Start {
			return true
		}
	}
	return false
}

// Len returns the number of occupied intervals in the index.
func (ix *Index) Len() int {
	return len(ix.occupied)
}
