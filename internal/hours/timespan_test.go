package hours

import (
	"testing"
	"time"
)

func TestResolveForDate(t *testing.T) {
	t.Parallel()

	spans := []TimeSpan{
		{Name: "weekdays", StartTime: clock(8, 0), EndTime: clock(16, 0), Weekdays: BusinessDays(), ResourceState: StateOpen},
		{Name: "every day", StartTime: clock(20, 0), EndTime: clock(1, 0), EndTimeOnNextDay: true, ResourceState: StateUndefined},
		{Name: "sunday", FullDay: true, Weekdays: []Weekday{Sunday}, ResourceState: StateClosed},
	}

	monday := ResolveForDate(spans, day(2020, time.October, 12))
	if got := describe(monday); got != "08:00-16:00 open, 20:00-01:00+1 undefined" {
		t.Fatalf("unexpected monday elements %q", got)
	}
	if monday[0].Name != "weekdays" || monday[0].Override {
		t.Fatalf("expected span metadata and no override, got %+v", monday[0])
	}

	sunday := ResolveForDate(spans, day(2020, time.October, 18))
	if got := describe(sunday); got != "20:00-01:00+1 undefined, *-* closed full_day" {
		t.Fatalf("unexpected sunday elements %q", got)
	}
}

func TestDeriveEndTimeOnNextDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start int
		end   int
		want  bool
	}{
		{"regular day", 9, 17, false},
		{"crosses midnight", 22, 2, true},
		{"midnight to midnight", 0, 0, true},
		{"same non-midnight time", 9, 9, false},
	}
	for _, tc := range tests {
		if got := DeriveEndTimeOnNextDay(clock(tc.start, 0), clock(tc.end, 0)); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	if DeriveEndTimeOnNextDay(nil, clock(2, 0)) {
		t.Errorf("expected missing start to never wrap")
	}
}
