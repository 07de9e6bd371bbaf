package hours

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
)

func day(year int, month time.Month, d int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: d}
}

func datePtr(d civil.Date) *civil.Date {
	return &d
}

func clock(hour, minute int) *civil.Time {
	return &civil.Time{Hour: hour, Minute: minute}
}

func intPtr(v int) *int {
	return &v
}

func openSpan(start, end *civil.Time, weekdays ...Weekday) TimeSpan {
	return TimeSpan{StartTime: start, EndTime: end, Weekdays: weekdays, ResourceState: StateUndefined}
}

func yearPeriod(id string, year int, state State, override bool, groups ...TimeSpanGroup) DatePeriod {
	return DatePeriod{
		ID:            id,
		StartDate:     datePtr(day(year, time.January, 1)),
		EndDate:       datePtr(day(year, time.December, 31)),
		ResourceState: state,
		Override:      override,
		Groups:        groups,
	}
}

// describe renders elements compactly for comparisons, e.g.
// "08:00-16:00 open" or "22:00-02:00+1 open override".
func describe(elements []TimeElement) string {
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		start, end := "*", "*"
		if el.StartTime != nil {
			start = fmt.Sprintf("%02d:%02d", el.StartTime.Hour, el.StartTime.Minute)
		}
		if el.EndTime != nil {
			end = fmt.Sprintf("%02d:%02d", el.EndTime.Hour, el.EndTime.Minute)
		}
		if el.EndTimeOnNextDay {
			end += "+1"
		}
		s := start + "-" + end + " " + string(el.State)
		if el.Override {
			s += " override"
		}
		if el.FullDay {
			s += " full_day"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func assertDay(t *testing.T, hours OpeningHours, d civil.Date, want string) {
	t.Helper()
	elements, ok := hours.Get(d)
	if !ok {
		t.Fatalf("expected opening hours for %s, got none", d)
	}
	if got := describe(elements); got != want {
		t.Fatalf("%s: expected %q, got %q", d, want, got)
	}
}
