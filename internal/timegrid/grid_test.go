package timegrid

import "testing"

func TestGenerate_Basic(t *testing.T) {
	// 09:00-12:00 with 60-minute slots.
	slots := Generate(9*60, 12*60, 60)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	want := []Slot{
		{Start: 9 * 60, End: 10 * 60},
		{Start: 10 * 60, End: 11 * 60},
		{Start: 11 * 60, End: 12 * 60},
	}
	for i, s := range slots {
		if s != want[i] {
			t.Fatalf("slot %d: got %s, want %s", i, s, want[i])
		}
	}
}

func TestGenerate_CountAndContiguity(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		end      int
		duration int
	}{
		{"even split", 9 * 60, 17 * 60, 60},
		{"partial trailing slot", 9 * 60, 17*60 + 30, 60},
		{"short slots", 10 * 60, 11 * 60, 15},
		{"single slot window", 9 * 60, 9*60 + 45, 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := Generate(tc.start, tc.end, tc.duration)
			wantCount := (tc.end - tc.start) / tc.duration
			if len(slots) != wantCount {
				t.Fatalf("expected %d slots, got %d", wantCount, len(slots))
			}
			for i, s := range slots {
				if s.End-s.Start != tc.duration {
					t.Fatalf("slot %d has length %d, want %d", i, s.End-s.Start, tc.duration)
				}
				if s.Start < tc.start || s.End > tc.end {
					t.Fatalf("slot %d (%s) outside window", i, s)
				}
				if i > 0 && slots[i-1].End != s.Start {
					t.Fatalf("gap between slot %d and %d", i-1, i)
				}
			}
		})
	}
}

func TestGenerate_EmptyWindows(t *testing.T) {
	if got := Generate(12*60, 9*60, 60); got != nil {
		t.Fatalf("inverted window should yield no slots, got %v", got)
	}
	if got := Generate(9*60, 9*60, 60); got != nil {
		t.Fatalf("zero-length window should yield no slots, got %v", got)
	}
	if got := Generate(9*60, 9*60+30, 60); got != nil {
		t.Fatalf("window shorter than duration should yield no slots, got %v", got)
	}
}

func TestGenerate_DefaultDuration(t *testing.T) {
	slots := Generate(9*60, 12*60, 0)
	if len(slots) != 3 {
		t.Fatalf("expected 60-minute default duration, got %d slots", len(slots))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(8*60, 18*60, 45)
	b := Generate(8*60, 18*60, 45)
	if len(a) != len(b) {
		t.Fatalf("repeated calls disagree: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs between calls", i)
		}
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != 9*60+30 {
		t.Fatalf("expected 570, got %d", m)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatal("expected error for invalid hour")
	}
	if FormatClock(m) != "09:30" {
		t.Fatalf("round trip failed: %s", FormatClock(m))
	}
}
