package timegrid

import (
	"fmt"
	"time"
)

// Slot is a half-open [Start, End) interval within a single day.
// Start and End are minutes from midnight.
type Slot struct {
	Start int
	End   int
}

// DefaultDurationMinutes applies when a caller does not specify a slot length.
const DefaultDurationMinutes = 60

const minutesPerDay = 24 * 60

// Valid reports whether the slot is well-formed: non-inverted, non-empty,
// and within a single day.
func (s Slot) Valid() bool {
	return s.Start >= 0 && s.End <= minutesPerDay && s.Start < s.End
}

func (s Slot) String() string {
	return FormatClock(s.Start) + "-" + FormatClock(s.End)
}

// Generate converts an availability window into the ordered sequence of
// discrete slots [start, start+d), [start+d, start+2d), ... A trailing
// partial slot is discarded. An inverted or empty window yields no slots;
// an actor without a usable window simply has nothing bookable.
func Generate(windowStart, windowEnd, durationMinutes int) []Slot {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if windowStart < 0 || windowEnd > minutesPerDay {
		return nil
	}
	if windowEnd <= windowStart {
		return nil
	}

	var slots []Slot
	for t := windowStart; t+durationMinutes <= windowEnd; t += durationMinutes {
		slots = append(slots, Slot{Start: t, End: t + durationMinutes})
	}
	return slots
}

// ParseClock converts an "HH:MM" wall-clock string to minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
