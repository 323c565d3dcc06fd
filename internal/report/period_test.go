package report

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func lisbon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
	}{
		{"", PeriodWeek},
		{"semana", PeriodWeek},
		{"Week", PeriodWeek},
		{"mes", PeriodMonth},
		{"month", PeriodMonth},
		{" ano ", PeriodYear},
		{"year", PeriodYear},
	}
	for _, tc := range tests {
		got, err := ParsePeriod(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("%q: expected %s got %s (%v)", tc.in, tc.want, got, err)
		}
	}
	if _, err := ParsePeriod("trimestre"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestWeekWindowStartsOnMonday(t *testing.T) {
	loc := lisbon(t)
	monday := time.Date(2026, 5, 4, 0, 0, 0, 0, loc)
	for _, now := range []time.Time{
		monday,
		time.Date(2026, 5, 6, 15, 0, 0, 0, loc),
		time.Date(2026, 5, 10, 23, 59, 0, 0, loc),
	} {
		w := PeriodWeek.Window(now, loc)
		if !w.Start.Equal(monday) || !w.End.Equal(monday.AddDate(0, 0, 7)) {
			t.Fatalf("%s: unexpected window %s - %s", now, w.Start, w.End)
		}
		if !w.Contains(now) {
			t.Fatalf("%s must be inside its window", now)
		}
	}
	if PeriodWeek.Window(monday, loc).Contains(monday.AddDate(0, 0, 7)) {
		t.Fatal("window end must be exclusive")
	}
}

func TestWeekWindowAcrossDST(t *testing.T) {
	loc := lisbon(t)
	w := PeriodWeek.Window(time.Date(2026, 3, 27, 12, 0, 0, 0, loc), loc)
	if w.Start.Weekday() != time.Monday || w.Start.Hour() != 0 {
		t.Fatalf("unexpected start %s", w.Start)
	}
	if got := w.End.Sub(w.Start); got != 167*time.Hour {
		t.Fatalf("expected 167h week across DST, got %s", got)
	}
}

func TestMonthAndYearWindows(t *testing.T) {
	loc := lisbon(t)
	now := time.Date(2026, 12, 31, 23, 0, 0, 0, loc)

	m := PeriodMonth.Window(now, loc)
	if !m.Start.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, loc)) || !m.End.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected month window %s - %s", m.Start, m.End)
	}
	y := PeriodYear.Window(now, loc)
	if !y.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, loc)) || !y.End.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected year window %s - %s", y.Start, y.End)
	}

	feb, err := MonthWindow(2, 2028, loc)
	if err != nil {
		t.Fatalf("month window: %v", err)
	}
	if !feb.End.Equal(time.Date(2028, 3, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected end %s", feb.End)
	}
	if _, err := MonthWindow(13, 2026, loc); err == nil {
		t.Fatal("expected invalid month")
	}
}
