package hours

import (
	"sort"
	"time"

	"github.com/golang-sql/civil"
)

// unboundedPeriodLength ranks elements of unbounded periods after every
// bounded one when choosing the most specific override.
const unboundedPeriodLength = 9999

// TimeElement is one continuous or full-day interval with a state on a
// single day. Identity is start, end, next-day flag, state, override and
// full day; Name, Description and Periods are metadata.
type TimeElement struct {
	StartTime        *civil.Time
	EndTime          *civil.Time
	EndTimeOnNextDay bool
	State            State
	Override         bool
	FullDay          bool
	Name             string
	Description      string
	Periods          []PeriodRef
}

// Equal compares the identity fields of two elements.
func (e TimeElement) Equal(other TimeElement) bool {
	return sameTime(e.StartTime, other.StartTime) &&
		sameTime(e.EndTime, other.EndTime) &&
		e.EndTimeOnNextDay == other.EndTimeOnNextDay &&
		e.State == other.State &&
		e.Override == other.Override &&
		e.FullDay == other.FullDay
}

// HasNoTimes reports whether the element has neither a start nor an end.
func (e TimeElement) HasNoTimes() bool {
	return e.StartTime == nil && e.EndTime == nil
}

// NextDayPart returns the part of an element running past midnight,
// starting at 00:00 on the following day.
func (e TimeElement) NextDayPart() (TimeElement, bool) {
	if !e.EndTimeOnNextDay {
		return TimeElement{}, false
	}
	midnight := civil.Time{}
	part := e
	part.StartTime = &midnight
	part.EndTimeOnNextDay = false
	part.Periods = append([]PeriodRef(nil), e.Periods...)
	return part, true
}

// TotalPeriodLength sums the day lengths of the element's periods. Elements
// without periods or with an unbounded one rank as unboundedPeriodLength.
func (e TimeElement) TotalPeriodLength() int {
	if len(e.Periods) == 0 {
		return unboundedPeriodLength
	}
	total := 0
	for _, p := range e.Periods {
		if !p.Bounded {
			return unboundedPeriodLength
		}
		total += p.Length
	}
	return total
}

// Compare orders elements by start (missing first), next-day flag, end
// (missing last) and state.
func Compare(a, b TimeElement) int {
	if c := compareInt(startKey(a), startKey(b)); c != 0 {
		return c
	}
	if a.EndTimeOnNextDay != b.EndTimeOnNextDay {
		if !a.EndTimeOnNextDay {
			return -1
		}
		return 1
	}
	if c := compareInt(endKey(a), endKey(b)); c != 0 {
		return c
	}
	switch {
	case a.State < b.State:
		return -1
	case a.State > b.State:
		return 1
	}
	return 0
}

// SortElements sorts elements in place using Compare.
func SortElements(elements []TimeElement) {
	sort.SliceStable(elements, func(i, j int) bool { return Compare(elements[i], elements[j]) < 0 })
}

const endOfDay = int64(24 * time.Hour)

func timeOfDay(t civil.Time) int64 {
	return int64(t.Hour)*int64(time.Hour) +
		int64(t.Minute)*int64(time.Minute) +
		int64(t.Second)*int64(time.Second) +
		int64(t.Nanosecond)
}

func startKey(e TimeElement) int64 {
	if e.StartTime == nil {
		return -1
	}
	return timeOfDay(*e.StartTime)
}

func endKey(e TimeElement) int64 {
	if e.EndTime == nil {
		return endOfDay
	}
	return timeOfDay(*e.EndTime)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sameTime(a, b *civil.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
