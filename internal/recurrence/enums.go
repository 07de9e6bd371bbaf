package recurrence

import "strings"

// Context is the scope within which a rule counts its subjects.
type Context string

const (
	ContextPeriod Context = "period"
	ContextYear   Context = "year"
	ContextMonth  Context = "month"
)

// Valid reports whether c is a known context.
func (c Context) Valid() bool {
	switch c {
	case ContextPeriod, ContextYear, ContextMonth:
		return true
	}
	return false
}

// Label is the English display name.
func (c Context) Label() string {
	switch c {
	case ContextPeriod:
		return "Period"
	case ContextYear:
		return "Year"
	case ContextMonth:
		return "Month"
	}
	return string(c)
}

// Subject is the unit a rule selects within its context.
type Subject string

const (
	SubjectDay       Subject = "day"
	SubjectWeek      Subject = "week"
	SubjectMonth     Subject = "month"
	SubjectMonday    Subject = "mon"
	SubjectTuesday   Subject = "tue"
	SubjectWednesday Subject = "wed"
	SubjectThursday  Subject = "thu"
	SubjectFriday    Subject = "fri"
	SubjectSaturday  Subject = "sat"
	SubjectSunday    Subject = "sun"
)

var weekdaySubjects = [...]Subject{
	SubjectMonday,
	SubjectTuesday,
	SubjectWednesday,
	SubjectThursday,
	SubjectFriday,
	SubjectSaturday,
	SubjectSunday,
}

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether s is a known subject.
func (s Subject) Valid() bool {
	switch s {
	case SubjectDay, SubjectWeek, SubjectMonth:
		return true
	}
	_, ok := s.ISOWeekday()
	return ok
}

// ISOWeekday maps a weekday subject to 1 (Monday) through 7 (Sunday).
func (s Subject) ISOWeekday() (int, bool) {
	for i, subject := range weekdaySubjects {
		if subject == s {
			return i + 1, true
		}
	}
	return 0, false
}

// IsSingular reports whether each bucket of the subject is a single day.
func (s Subject) IsSingular() bool {
	if s == SubjectDay {
		return true
	}
	_, ok := s.ISOWeekday()
	return ok
}

// Label is the English display name.
func (s Subject) Label() string {
	switch s {
	case SubjectDay:
		return "Day"
	case SubjectWeek:
		return "Week"
	case SubjectMonth:
		return "Month"
	}
	if iso, ok := s.ISOWeekday(); ok {
		return weekdayNames[iso-1]
	}
	return string(s)
}

// Modifier selects every other bucket by the parity of its ordinal.
type Modifier string

const (
	ModifierNone Modifier = ""
	ModifierEven Modifier = "even"
	ModifierOdd  Modifier = "odd"
)

// Valid reports whether m is a known modifier or empty.
func (m Modifier) Valid() bool {
	switch m {
	case ModifierNone, ModifierEven, ModifierOdd:
		return true
	}
	return false
}

// Label is the English display name.
func (m Modifier) Label() string {
	if m == ModifierNone {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}
