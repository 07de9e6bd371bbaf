package hours

import (
	"github.com/golang-sql/civil"
)

// DayHours is the combined opening hours of one date.
type DayHours struct {
	Date     civil.Date
	Elements []TimeElement
}

// OpeningHours is a date ordered list of days with at least one element.
type OpeningHours []DayHours

// Get returns the elements of d, or false when d has none.
func (h OpeningHours) Get(d civil.Date) ([]TimeElement, bool) {
	for _, day := range h {
		if day.Date == d {
			return day.Elements, true
		}
	}
	return nil, false
}

// ResolveOpeningHours combines the periods of one resource into final daily
// opening hours for [start, end]. The day before start is evaluated too so
// that spans running past its midnight carry into start. Days without any
// element are absent from the result.
func ResolveOpeningHours(periods []DatePeriod, start, end civil.Date) OpeningHours {
	if end.Before(start) {
		return nil
	}
	dayBefore := start.AddDays(-1)

	raw := make(DailyHours)
	for _, p := range periods {
		if p.StartDate != nil && p.StartDate.After(end) {
			continue
		}
		if p.EndDate != nil && p.EndDate.Before(dayBefore) {
			continue
		}
		raw.Merge(p.DailyOpeningHours(dayBefore, end))
	}

	var result OpeningHours
	var previous []TimeElement
	for d := dayBefore; !d.After(end); d = d.AddDays(1) {
		elements := append([]TimeElement(nil), raw[d]...)
		for _, el := range previous {
			if part, ok := el.NextDayPart(); ok {
				elements = append(elements, part)
			}
		}
		if len(elements) == 0 {
			previous = nil
			continue
		}
		previous = CombineAndApplyOverride(elements)
		if d != dayBefore {
			result = append(result, DayHours{Date: d, Elements: previous})
		}
	}
	return result
}
