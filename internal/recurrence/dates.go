package recurrence

import (
	"sort"
	"time"

	"github.com/golang-sql/civil"
)

// Bounds is the inclusive date range of the period owning a rule. A nil side
// is unbounded.
type Bounds struct {
	Start *civil.Date
	End   *civil.Date
}

// Clip narrows [start, end] to the bounds. ok is false when nothing remains.
func (b Bounds) Clip(start, end civil.Date) (from, to civil.Date, ok bool) {
	from, to = start, end
	if b.Start != nil && b.Start.After(from) {
		from = *b.Start
	}
	if b.End != nil && b.End.Before(to) {
		to = *b.End
	}
	return from, to, !from.After(to)
}

// Length returns the number of days between start and end, or false when
// either side is unbounded.
func (b Bounds) Length() (int, bool) {
	if b.Start == nil || b.End == nil {
		return 0, false
	}
	return b.End.DaysSince(*b.Start), true
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(d civil.Date) int {
	wd := d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// ISOWeek returns the ISO 8601 week number of d.
func ISOWeek(d civil.Date) int {
	_, week := d.In(time.UTC).ISOWeek()
	return week
}

// ExpandRange lists every date from start to end inclusive.
func ExpandRange(start, end civil.Date) []civil.Date {
	if end.Before(start) {
		return nil
	}
	dates := make([]civil.Date, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// FirstOfMonth returns the first day of d's month.
func FirstOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// LastOfMonth returns the last day of d's month.
func LastOfMonth(d civil.Date) civil.Date {
	return nextMonth(FirstOfMonth(d)).AddDays(-1)
}

// MondayOnOrBefore returns the Monday starting d's Monday-Sunday week.
func MondayOnOrBefore(d civil.Date) civil.Date {
	return d.AddDays(1 - ISOWeekday(d))
}

func nextMonth(first civil.Date) civil.Date {
	if first.Month == time.December {
		return civil.Date{Year: first.Year + 1, Month: time.January, Day: 1}
	}
	return civil.Date{Year: first.Year, Month: first.Month + 1, Day: 1}
}

func minDate(a, b civil.Date) civil.Date {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b civil.Date) civil.Date {
	if a.After(b) {
		return a
	}
	return b
}

// DateSet is an unordered set of dates.
type DateSet map[civil.Date]struct{}

// NewDateSet builds a set from the supplied dates.
func NewDateSet(dates ...civil.Date) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Add inserts d.
func (s DateSet) Add(d civil.Date) {
	s[d] = struct{}{}
}

// Contains reports whether d is in the set.
func (s DateSet) Contains(d civil.Date) bool {
	_, ok := s[d]
	return ok
}

// Intersect returns the dates present in both sets.
func (s DateSet) Intersect(other DateSet) DateSet {
	out := make(DateSet)
	for d := range s {
		if other.Contains(d) {
			out[d] = struct{}{}
		}
	}
	return out
}

// Sorted returns the dates in ascending order.
func (s DateSet) Sorted() []civil.Date {
	out := make([]civil.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
