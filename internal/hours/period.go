package hours

import (
	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// DailyHours maps dates to the uncombined elements applying on them.
type DailyHours map[civil.Date][]TimeElement

// Merge appends every element of other onto h.
func (h DailyHours) Merge(other DailyHours) {
	for d, elements := range other {
		h[d] = append(h[d], elements...)
	}
}

// DailyOpeningHours resolves the period for every date in [start, end]
// overlapping its own bounds. Groups are evaluated independently and their
// results unioned; rules within a group must all match.
func (p DatePeriod) DailyOpeningHours(start, end civil.Date) DailyHours {
	result := make(DailyHours)
	bounds := p.Bounds()
	from, to, ok := bounds.Clip(start, end)
	if !ok {
		return result
	}
	ref := p.Ref()

	if len(p.Groups) == 0 {
		if p.ResourceState == StateUndefined || p.ResourceState == "" {
			return result
		}
		for _, d := range recurrence.ExpandRange(from, to) {
			result[d] = append(result[d], TimeElement{
				State:       p.ResourceState,
				Override:    p.Override,
				FullDay:     true,
				Name:        p.Name,
				Description: p.Description,
				Periods:     []PeriodRef{ref},
			})
		}
		return result
	}

	for _, group := range p.Groups {
		dates := recurrence.NewDateSet(recurrence.ExpandRange(from, to)...)
		for _, rule := range group.Rules {
			dates = dates.Intersect(rule.ApplyToDateRange(bounds, from, to))
		}
		for _, d := range dates.Sorted() {
			for _, el := range ResolveForDate(group.TimeSpans, d) {
				if el.State == StateUndefined || el.State == "" {
					el.State = p.ResourceState
				}
				el.Override = p.Override
				el.Periods = []PeriodRef{ref}
				result[d] = append(result[d], el)
			}
		}
	}
	return result
}
