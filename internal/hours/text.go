package hours

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

const (
	periodSeparator = "\n========================================\n"
	groupSeparator  = "\n\n ---------------------------------------\n\n"
)

// DatePeriodsText renders periods as English text, ordered by start date
// with unbounded starts last. No periods renders as the empty string.
func DatePeriodsText(periods []DatePeriod) string {
	if len(periods) == 0 {
		return ""
	}
	sorted := append([]DatePeriod(nil), periods...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dateBefore(sorted[i].StartDate, sorted[j].StartDate)
	})

	texts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		texts = append(texts, p.Text())
	}
	return periodSeparator + strings.Join(texts, periodSeparator) + periodSeparator
}

// Text renders one period with its groups.
func (p DatePeriod) Text() string {
	var groups []string
	for _, g := range p.Groups {
		if len(g.TimeSpans) == 0 {
			continue
		}
		groups = append(groups, g.text(p.ResourceState))
	}
	if len(groups) == 0 && stateOrUndefined(p.ResourceState) != StateUndefined {
		groups = []string{" " + p.ResourceState.Label()}
	}

	var b strings.Builder
	if p.Name != "" {
		b.WriteString(p.Name + "\n")
	}
	if p.Description != "" {
		b.WriteString(p.Description + "\n")
	}
	fmt.Fprintf(&b, "Date period: %s\nOpening hours:\n\n%s\n", periodDatesText(p.StartDate, p.EndDate), strings.Join(groups, groupSeparator))
	return b.String()
}

func (g TimeSpanGroup) text(periodState State) string {
	spans := append([]TimeSpan(nil), g.TimeSpans...)
	sort.SliceStable(spans, func(i, j int) bool { return spanBefore(spans[i], spans[j]) })

	lines := make([]string, 0, len(spans))
	for _, s := range spans {
		lines = append(lines, " "+s.Text(periodState))
	}
	result := strings.Join(lines, "\n")

	if len(g.Rules) > 0 {
		rules := make([]string, 0, len(g.Rules))
		for _, r := range g.Rules {
			rules = append(rules, " - "+r.Text())
		}
		result += "\n\n In effect when every one of these match:\n" + strings.Join(rules, "\n")
	}
	return result
}

// Text renders the span as weekdays, times and state. An undefined span
// state falls back to periodState.
func (s TimeSpan) Text(periodState State) string {
	state := s.ResourceState
	if stateOrUndefined(state) == StateUndefined {
		state = stateOrUndefined(periodState)
	}

	times := "The whole day"
	if !s.FullDay {
		times = formatTimePtr(s.StartTime) + "-" + formatTimePtr(s.EndTime)
	}
	return WeekdaysText(s.Weekdays) + " " + times + " " + state.Label()
}

// WeekdaysText collapses consecutive weekdays into ranges, such as
// "Monday-Tuesday, Thursday".
func WeekdaysText(weekdays []Weekday) string {
	if len(weekdays) == 0 {
		return "Every day"
	}
	sorted := append([]Weekday(nil), weekdays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var parts []string
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, sorted[i].Label()+"-"+sorted[j].Label())
		} else {
			parts = append(parts, sorted[i].Label())
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}

func periodDatesText(start, end *civil.Date) string {
	switch {
	case start == nil && end == nil:
		return "Not specified"
	case start != nil && end != nil && *start == *end:
		return FormatDate(*start)
	}
	return formatDatePtr(start) + " - " + formatDatePtr(end)
}

var monthAbbreviations = map[time.Month]string{
	time.January:   "Jan.",
	time.February:  "Feb.",
	time.March:     "March",
	time.April:     "April",
	time.May:       "May",
	time.June:      "June",
	time.July:      "July",
	time.August:    "Aug.",
	time.September: "Sept.",
	time.October:   "Oct.",
	time.November:  "Nov.",
	time.December:  "Dec.",
}

// FormatDate renders d in AP style, e.g. "Jan. 1, 2021".
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%s %d, %d", monthAbbreviations[d.Month], d.Day, d.Year)
}

// FormatTime renders t as "9 a.m.", "9:30 p.m.", "noon" or "midnight".
func FormatTime(t civil.Time) string {
	switch {
	case t.Minute == 0 && t.Hour == 0:
		return "midnight"
	case t.Minute == 0 && t.Hour == 12:
		return "noon"
	}
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	suffix := "a.m."
	if t.Hour >= 12 {
		suffix = "p.m."
	}
	if t.Minute == 0 {
		return fmt.Sprintf("%d %s", hour, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, suffix)
}

func formatTimePtr(t *civil.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}

func formatDatePtr(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return FormatDate(*d)
}

// dateBefore orders dates ascending with nil last.
func dateBefore(a, b *civil.Date) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	return a.Before(*b)
}

// spanBefore orders spans by weekdays, start, next-day flag, end and state.
// Missing weekdays and times sort last.
func spanBefore(a, b TimeSpan) bool {
	if c := compareWeekdays(a.Weekdays, b.Weekdays); c != 0 {
		return c < 0
	}
	if c := compareTimePtr(a.StartTime, b.StartTime); c != 0 {
		return c < 0
	}
	if a.EndTimeOnNextDay != b.EndTimeOnNextDay {
		return !a.EndTimeOnNextDay
	}
	if c := compareTimePtr(a.EndTime, b.EndTime); c != 0 {
		return c < 0
	}
	return a.ResourceState < b.ResourceState
}

func compareWeekdays(a, b []Weekday) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i] - b[i])
		}
	}
	return len(a) - len(b)
}

func compareTimePtr(a, b *civil.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return int(compareInt(timeOfDay(*a), timeOfDay(*b)))
}
