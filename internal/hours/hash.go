package hours

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-sql/civil"
	"golang.org/x/crypto/blake2b"
)

// HashInput is the canonical form of the span. Name and description are
// left out so that renames keep the hash stable.
func (s TimeSpan) HashInput() string {
	weekdays := "*"
	if len(s.Weekdays) > 0 {
		sorted := append([]Weekday(nil), s.Weekdays...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var b strings.Builder
		for _, w := range sorted {
			b.WriteString(strconv.Itoa(int(w)))
		}
		weekdays = b.String()
	}
	return "[TIME_SPAN:" + strings.Join([]string{
		timeOrStar(s.StartTime),
		timeOrStar(s.EndTime),
		pyBool(s.EndTimeOnNextDay),
		pyBool(s.FullDay),
		weekdays,
		string(stateOrUndefined(s.ResourceState)),
	}, "|") + "]"
}

// HashInput concatenates the sorted span inputs and the sorted rule inputs.
func (g TimeSpanGroup) HashInput() string {
	spans := make([]string, 0, len(g.TimeSpans))
	for _, s := range g.TimeSpans {
		spans = append(spans, s.HashInput())
	}
	sort.Strings(spans)

	rules := make([]string, 0, len(g.Rules))
	for _, r := range g.Rules {
		rules = append(rules, r.HashInput())
	}
	sort.Strings(rules)

	return strings.Join(spans, "") + strings.Join(rules, "")
}

// HashInput is the period header followed by its sorted group inputs.
func (p DatePeriod) HashInput() string {
	groups := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		groups = append(groups, g.HashInput())
	}
	sort.Strings(groups)

	header := "[DATE_PERIOD:" + strings.Join([]string{
		dateOrStar(p.StartDate),
		dateOrStar(p.EndDate),
		string(stateOrUndefined(p.ResourceState)),
		pyBool(p.Override),
	}, "|") + "]"
	return header + strings.Join(groups, "")
}

// DatePeriodsHash is the hex BLAKE2b-256 digest over the sorted hash inputs
// of periods. The order of periods does not matter.
func DatePeriodsHash(periods []DatePeriod) string {
	inputs := make([]string, 0, len(periods))
	for _, p := range periods {
		inputs = append(inputs, p.HashInput())
	}
	sort.Strings(inputs)
	sum := blake2b.Sum256([]byte(strings.Join(inputs, "")))
	return hex.EncodeToString(sum[:])
}

func timeOrStar(t *civil.Time) string {
	if t == nil {
		return "*"
	}
	return t.String()
}

func dateOrStar(d *civil.Date) string {
	if d == nil {
		return "*"
	}
	return d.String()
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func stateOrUndefined(s State) State {
	if s == "" {
		return StateUndefined
	}
	return s
}
