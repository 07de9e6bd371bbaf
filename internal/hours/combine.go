package hours

import (
	"sort"
	"strings"
)

// CombineOverlapping merges touching or overlapping elements of the same
// state. Override elements pass through untouched. When exactly one state
// has a full-day element without times, that state supersedes every other
// non-override state for the day.
func CombineOverlapping(elements []TimeElement) []TimeElement {
	var regular, overrides []TimeElement
	for _, el := range elements {
		if el.Override {
			overrides = append(overrides, el)
			continue
		}
		regular = append(regular, el)
	}

	if state, ok := supersedingFullDayState(regular); ok {
		kept := regular[:0:0]
		for _, el := range regular {
			if el.State == state {
				kept = append(kept, el)
			}
		}
		regular = kept
	}

	result := append(mergeByState(regular), overrides...)
	SortElements(result)
	return result
}

// CombineAndApplyOverride produces the final elements of one day. Override
// elements beat regular ones, and among overrides only those from the
// shortest period set survive. Equally short override sets from different
// periods are all kept.
func CombineAndApplyOverride(elements []TimeElement) []TimeElement {
	var overrides []TimeElement
	for _, el := range elements {
		if el.Override {
			overrides = append(overrides, el)
		}
	}
	if len(overrides) == 0 {
		return CombineOverlapping(elements)
	}

	shortest := overrides[0].TotalPeriodLength()
	for _, el := range overrides[1:] {
		if l := el.TotalPeriodLength(); l < shortest {
			shortest = l
		}
	}
	winners := make(map[string]struct{})
	for _, el := range overrides {
		if el.TotalPeriodLength() == shortest {
			winners[periodsKey(el.Periods)] = struct{}{}
		}
	}

	kept := make([]TimeElement, 0, len(overrides))
	for _, el := range overrides {
		if _, ok := winners[periodsKey(el.Periods)]; ok {
			kept = append(kept, el)
		}
	}
	result := mergeByState(kept)
	SortElements(result)
	return result
}

func supersedingFullDayState(elements []TimeElement) (State, bool) {
	states := make(map[State]struct{})
	fullDay := make(map[State]struct{})
	for _, el := range elements {
		states[el.State] = struct{}{}
		if el.FullDay && el.HasNoTimes() {
			fullDay[el.State] = struct{}{}
		}
	}
	if len(fullDay) != 1 || len(states) < 2 {
		return "", false
	}
	for state := range fullDay {
		return state, true
	}
	return "", false
}

func mergeByState(elements []TimeElement) []TimeElement {
	byState := make(map[State][]TimeElement)
	var states []State
	for _, el := range elements {
		if _, ok := byState[el.State]; !ok {
			states = append(states, el.State)
		}
		byState[el.State] = append(byState[el.State], el)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	var result []TimeElement
	for _, state := range states {
		result = append(result, mergeRuns(byState[state])...)
	}
	return result
}

// run is a stretch of merged elements of one state.
type run struct {
	members []TimeElement
	end     endPoint
}

// endPoint orders end times so that a next-day end is later than any end
// on the same day. A missing end is the end of the day.
type endPoint struct {
	nextDay bool
	at      int64
}

func (a endPoint) before(b endPoint) bool {
	if a.nextDay != b.nextDay {
		return !a.nextDay
	}
	return a.at < b.at
}

func endPointOf(el TimeElement) endPoint {
	return endPoint{nextDay: el.EndTimeOnNextDay, at: endKey(el)}
}

// mergeRuns merges elements of a single state. An element without start
// and end covers the whole day and absorbs every other element.
func mergeRuns(elements []TimeElement) []TimeElement {
	for _, el := range elements {
		if el.HasNoTimes() {
			return []TimeElement{el}
		}
	}

	sorted := append([]TimeElement(nil), elements...)
	SortElements(sorted)

	var result []TimeElement
	var current *run
	for _, el := range sorted {
		start := endPoint{at: startKey(el)}
		if current != nil && !current.end.before(start) {
			current.members = append(current.members, el)
			if end := endPointOf(el); current.end.before(end) {
				current.end = end
			}
			continue
		}
		if current != nil {
			result = append(result, current.element())
		}
		current = &run{members: []TimeElement{el}, end: endPointOf(el)}
	}
	if current != nil {
		result = append(result, current.element())
	}
	return result
}

func (r *run) element() TimeElement {
	if len(r.members) == 1 {
		return r.members[0]
	}
	first := r.members[0]
	merged := TimeElement{
		StartTime:        first.StartTime,
		EndTimeOnNextDay: r.end.nextDay,
		State:            first.State,
		Override:         first.Override,
	}
	for _, m := range r.members {
		if endPointOf(m) == r.end {
			merged.EndTime = m.EndTime
			break
		}
	}
	seen := make(map[string]struct{})
	for _, m := range r.members {
		for _, p := range m.Periods {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			merged.Periods = append(merged.Periods, p)
		}
	}
	return merged
}

func periodsKey(refs []PeriodRef) string {
	ids := make([]string, len(refs))
	for i, p := range refs {
		ids[i] = p.ID
	}
	return strings.Join(ids, "\x00")
}
