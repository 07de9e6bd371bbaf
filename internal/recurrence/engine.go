package recurrence

import (
	"time"

	"github.com/golang-sql/civil"
)

// Rule narrows the dates on which a time span group applies.
//
// Start is a 1-based bucket position, negative counting from the end.
// FrequencyOrdinal steps through buckets beginning at Start.
// FrequencyModifier keeps buckets by the parity of their ordinal and
// excludes Start and FrequencyOrdinal.
type Rule struct {
	ID                string
	GroupID           string
	Name              string
	Description       string
	Context           Context
	Subject           Subject
	Start             *int
	FrequencyOrdinal  *int
	FrequencyModifier Modifier
}

// Validate checks r against the bounds of its owning period and returns the
// normalized rule. A stride without a start counts from the first bucket.
func (r Rule) Validate(period Bounds) (Rule, error) {
	if !r.Context.Valid() {
		return r, ErrUnknownContext
	}
	if !r.Subject.Valid() {
		return r, ErrUnknownSubject
	}
	if !r.FrequencyModifier.Valid() {
		return r, ErrUnknownModifier
	}
	if r.Context == ContextPeriod && period.Start == nil {
		return r, ErrPeriodContextUnbounded
	}
	if r.Context == ContextMonth && r.Subject == SubjectMonth {
		return r, ErrMonthInMonth
	}
	if r.FrequencyModifier != ModifierNone && r.FrequencyOrdinal != nil {
		return r, ErrModifierWithOrdinal
	}
	if r.FrequencyOrdinal != nil && *r.FrequencyOrdinal < 1 {
		return r, ErrNonPositiveOrdinal
	}
	if r.Start != nil && *r.Start == 0 && !(r.Subject == SubjectWeek && r.Context == ContextYear) {
		return r, ErrZeroStart
	}
	if r.Start != nil && r.FrequencyModifier != ModifierNone {
		return r, ErrModifierWithStart
	}
	if r.FrequencyOrdinal != nil && r.Start == nil {
		one := 1
		r.Start = &one
	}
	return r, nil
}

// bucket is one countable unit of a context set: a single day, a week or a
// month.
type bucket []civil.Date

// contextSet is the ordered list of buckets counted within one context.
type contextSet []bucket

// ApplyToDateRange returns the dates in [start, end] matched by the rule,
// restricted to the owning period. Invalid rules that slipped past
// validation match nothing rather than failing.
func (r Rule) ApplyToDateRange(period Bounds, start, end civil.Date) DateSet {
	matched := make(DateSet)
	from, to, ok := period.Clip(start, end)
	if !ok {
		return matched
	}

	for _, set := range r.contextSets(period, from, to) {
		for _, b := range r.filter(period, set) {
			for _, d := range b {
				if !d.Before(from) && !d.After(to) {
					matched.Add(d)
				}
			}
		}
	}
	return matched
}

func (r Rule) contextSets(period Bounds, from, to civil.Date) []contextSet {
	switch r.Context {
	case ContextPeriod:
		anchor := from
		if period.Start != nil {
			anchor = *period.Start
		}
		return []contextSet{r.subjectBuckets(anchor, to)}
	case ContextYear:
		var sets []contextSet
		for year := from.Year; year <= to.Year; year++ {
			first := civil.Date{Year: year, Month: time.January, Day: 1}
			last := civil.Date{Year: year, Month: time.December, Day: 31}
			sets = append(sets, r.subjectBuckets(first, last))
		}
		return sets
	case ContextMonth:
		if r.Subject == SubjectMonth {
			return nil
		}
		var sets []contextSet
		for first := FirstOfMonth(from); !first.After(to); first = nextMonth(first) {
			last := LastOfMonth(first)
			if r.Subject == SubjectWeek {
				sets = append(sets, weekBuckets(MondayOnOrBefore(first), last))
				continue
			}
			sets = append(sets, r.subjectBuckets(first, last))
		}
		return sets
	}
	return nil
}

// subjectBuckets splits [first, last] into the rule subject's buckets. Weeks
// run Monday to Sunday from the week containing first; months run from
// first's month through last's month.
func (r Rule) subjectBuckets(first, last civil.Date) contextSet {
	switch r.Subject {
	case SubjectDay:
		return dayBuckets(ExpandRange(first, last))
	case SubjectWeek:
		return weekBuckets(MondayOnOrBefore(first), last)
	case SubjectMonth:
		var set contextSet
		for month := FirstOfMonth(first); !month.After(last); month = nextMonth(month) {
			set = append(set, ExpandRange(month, LastOfMonth(month)))
		}
		return set
	}

	iso, ok := r.Subject.ISOWeekday()
	if !ok {
		return nil
	}
	var set contextSet
	for _, d := range ExpandRange(first, last) {
		if ISOWeekday(d) == iso {
			set = append(set, bucket{d})
		}
	}
	return set
}

func dayBuckets(dates []civil.Date) contextSet {
	set := make(contextSet, 0, len(dates))
	for _, d := range dates {
		set = append(set, bucket{d})
	}
	return set
}

func weekBuckets(monday, last civil.Date) contextSet {
	var set contextSet
	for ; !monday.After(last); monday = monday.AddDays(7) {
		set = append(set, ExpandRange(monday, monday.AddDays(6)))
	}
	return set
}

func (r Rule) filter(period Bounds, set contextSet) contextSet {
	switch {
	case r.FrequencyModifier != ModifierNone:
		if r.Context == ContextPeriod && period.Start == nil {
			return set
		}
		var kept contextSet
		for _, b := range set {
			if len(b) == 0 {
				continue
			}
			even := r.ordinalOf(b)%2 == 0
			if even == (r.FrequencyModifier == ModifierEven) {
				kept = append(kept, b)
			}
		}
		return kept

	case r.FrequencyOrdinal != nil:
		if r.Context == ContextPeriod && period.Start == nil {
			return set
		}
		start := 1
		if r.Start != nil {
			start = *r.Start
		}
		idx := r.index(set, start)
		if idx < 0 {
			idx += len(set)
			if idx < 0 {
				idx = 0
			}
		}
		var kept contextSet
		for i := idx; i < len(set); i += *r.FrequencyOrdinal {
			kept = append(kept, set[i])
		}
		return kept

	case r.Start != nil:
		idx := r.index(set, *r.Start)
		if idx < 0 {
			idx += len(set)
		}
		if idx < 0 || idx >= len(set) {
			return nil
		}
		return contextSet{set[idx]}
	}
	return set
}

// index converts a 1-based or negative position to a slice index. Negative
// results count from the end. In a year whose first week is ISO week 0,
// positions count from zero so that position 1 is ISO week 1.
func (r Rule) index(set contextSet, position int) int {
	if position < 0 {
		return position
	}
	if r.Context == ContextYear && r.Subject == SubjectWeek && len(set) > 0 && hasZerothWeek(set[0]) {
		return position
	}
	if position == 0 {
		return len(set)
	}
	return position - 1
}

func hasZerothWeek(first bucket) bool {
	return len(first) == 7 && first[6].Day < 4
}

func (r Rule) ordinalOf(b bucket) int {
	first := b[0]
	switch {
	case r.Subject.IsSingular():
		return first.Day
	case r.Subject == SubjectWeek:
		return ISOWeek(first)
	default:
		return int(first.Month)
	}
}
