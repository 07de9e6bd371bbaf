// Package hours resolves date periods into concrete daily opening hours.
//
// Everything in this package is a pure computation over already loaded
// periods; loading and persisting them is the caller's concern.
package hours

import (
	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// DatePeriod is a baseline or override opening hours policy of a resource
// for a date range. A nil StartDate or EndDate is unbounded.
type DatePeriod struct {
	ID            string
	ResourceID    string
	Name          string
	Description   string
	StartDate     *civil.Date
	EndDate       *civil.Date
	ResourceState State
	Override      bool
	Groups        []TimeSpanGroup
}

// Bounds returns the period's date range for rule evaluation.
func (p DatePeriod) Bounds() recurrence.Bounds {
	return recurrence.Bounds{Start: p.StartDate, End: p.EndDate}
}

// Ref identifies the period on the time elements it produces.
func (p DatePeriod) Ref() PeriodRef {
	length, bounded := p.Bounds().Length()
	return PeriodRef{ID: p.ID, Length: length, Bounded: bounded}
}

// TimeSpanGroup bundles time spans with the rules gating the dates they
// apply on. A group without rules applies on every day of the period.
type TimeSpanGroup struct {
	ID        string
	PeriodID  string
	TimeSpans []TimeSpan
	Rules     []recurrence.Rule
}

// TimeSpan is a time of day range applying on the given weekdays, or every
// day when Weekdays is empty. EndTimeOnNextDay is authored explicitly and
// never derived from comparing the times.
type TimeSpan struct {
	ID               string
	GroupID          string
	Name             string
	Description      string
	StartTime        *civil.Time
	EndTime          *civil.Time
	EndTimeOnNextDay bool
	FullDay          bool
	Weekdays         []Weekday
	ResourceState    State
}

// AppliesOn reports whether the span's weekday filter accepts d.
func (s TimeSpan) AppliesOn(d civil.Date) bool {
	if len(s.Weekdays) == 0 {
		return true
	}
	iso := Weekday(recurrence.ISOWeekday(d))
	for _, w := range s.Weekdays {
		if w == iso {
			return true
		}
	}
	return false
}

// PeriodRef is the metadata a time element keeps about its period.
type PeriodRef struct {
	ID      string
	Length  int
	Bounded bool
}
