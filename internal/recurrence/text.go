package recurrence

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// HashInput is the canonical form of the rule used for change detection.
// Name and description are not part of it.
func (r Rule) HashInput() string {
	fields := []string{
		orStar(string(r.Context)),
		orStar(string(r.Subject)),
		intOrStar(r.Start),
		intOrStar(r.FrequencyOrdinal),
		orStar(string(r.FrequencyModifier)),
	}
	return "[RULE:" + strings.Join(fields, "|") + "]"
}

// Text renders the rule as an English sentence, e.g. "Every 2nd month in
// the period" or "On even weeks in every year".
func (r Rule) Text() string {
	contextText := "the period"
	if r.Context != ContextPeriod {
		contextText = "every " + string(r.Context)
	}
	subject := strings.ToLower(r.Subject.Label())

	var text string
	switch {
	case r.Start != nil && *r.Start != 0 && r.FrequencyOrdinal == nil && r.FrequencyModifier == ModifierNone:
		text = positionText(*r.Start) + " " + subject + " in " + contextText
	case r.FrequencyOrdinal != nil:
		nth := ""
		if *r.FrequencyOrdinal != 1 {
			nth = Ordinal(*r.FrequencyOrdinal)
		}
		startingFrom := ""
		if r.Start != nil && *r.Start != 1 {
			n := ""
			if *r.Start != -1 {
				n = Ordinal(abs(*r.Start))
			}
			last := ""
			if *r.Start < 0 {
				last = "last"
			}
			startingFrom = "starting from the " + n + " " + last + " " + string(r.Subject)
		}
		text = "Every " + nth + " " + subject + " in " + contextText + " " + startingFrom
	case r.FrequencyModifier != ModifierNone:
		text = "On " + strings.ToLower(r.FrequencyModifier.Label()) + " " + subject + "s in " + contextText
	}
	return whitespaceRun.ReplaceAllString(strings.TrimRight(text, " \n\t"), " ")
}

func positionText(start int) string {
	switch {
	case start == -1:
		return "Last"
	case start < 0:
		return Ordinal(-start) + " last"
	}
	return Ordinal(start)
}

// Ordinal renders n as an English ordinal: 1st, 2nd, 3rd, 4th, 11th.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func intOrStar(v *int) string {
	if v == nil {
		return "*"
	}
	return strconv.Itoa(*v)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
