package hours

import "github.com/golang-sql/civil"

// ResolveForDate returns one element per span whose weekday filter accepts
// d. Elements carry the span's own state and are never overrides; the
// owning period fills both in.
func ResolveForDate(spans []TimeSpan, d civil.Date) []TimeElement {
	var elements []TimeElement
	for _, span := range spans {
		if !span.AppliesOn(d) {
			continue
		}
		elements = append(elements, TimeElement{
			StartTime:        span.StartTime,
			EndTime:          span.EndTime,
			EndTimeOnNextDay: span.EndTimeOnNextDay,
			State:            span.ResourceState,
			FullDay:          span.FullDay,
			Name:             span.Name,
			Description:      span.Description,
		})
	}
	return elements
}

// DeriveEndTimeOnNextDay guesses the next-day flag for spans imported
// without one: an end before the start wraps, and so does a span that both
// starts and ends at midnight.
func DeriveEndTimeOnNextDay(start, end *civil.Time) bool {
	if start == nil || end == nil {
		return false
	}
	s, e := timeOfDay(*start), timeOfDay(*end)
	if e < s {
		return true
	}
	return s == 0 && e == 0
}
