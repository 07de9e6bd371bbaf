package hours

import (
	"time"

	"github.com/golang-sql/civil"
)

// Interval is an element anchored to concrete instants.
type Interval struct {
	Element TimeElement
	Start   time.Time
	End     time.Time
}

// In re-expresses the interval in loc.
func (i Interval) In(loc *time.Location) Interval {
	return Interval{Element: i.Element, Start: i.Start.In(loc), End: i.End.In(loc)}
}

// IntervalOn anchors e to date d in loc. A missing start is the beginning
// of the day and a missing end its last instant. Next-day ends land on the
// following date.
func (e TimeElement) IntervalOn(d civil.Date, loc *time.Location) Interval {
	start := d.In(loc)
	if e.StartTime != nil {
		start = civil.DateTime{Date: d, Time: *e.StartTime}.In(loc)
	}

	endDate := d
	if e.EndTimeOnNextDay {
		endDate = d.AddDays(1)
	}
	end := civil.DateTime{Date: endDate, Time: civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999000}}.In(loc)
	if e.EndTime != nil {
		end = civil.DateTime{Date: endDate, Time: *e.EndTime}.In(loc)
	}
	return Interval{Element: e, Start: start, End: end}
}

// OpenAt returns the elements of day d containing now whose state counts
// as open.
func OpenAt(elements []TimeElement, d civil.Date, now time.Time, loc *time.Location) []Interval {
	var matches []Interval
	for _, el := range elements {
		if !el.State.IsOpen() {
			continue
		}
		iv := el.IntervalOn(d, loc)
		if now.Before(iv.Start) || now.After(iv.End) {
			continue
		}
		matches = append(matches, iv)
	}
	return matches
}
