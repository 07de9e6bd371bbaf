package recurrence

import "errors"

// ErrInvalidRule is matched by every rule configuration error.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// RuleError describes a rejected rule configuration. Field names the rule
// attribute the error should be reported against.
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return "recurrence: invalid rule: " + e.Reason
}

// Is makes every RuleError match ErrInvalidRule.
func (e *RuleError) Is(target error) bool {
	return target == ErrInvalidRule
}

var (
	ErrUnknownContext           = &RuleError{Field: "context", Reason: "unknown context"}
	ErrUnknownSubject           = &RuleError{Field: "subject", Reason: "unknown subject"}
	ErrUnknownModifier          = &RuleError{Field: "frequency_modifier", Reason: "unknown frequency modifier"}
	ErrPeriodContextUnbounded = &RuleError{Field: "context", Reason: "cannot count from the start of a period without a start date"}
	ErrMonthInMonth           = &RuleError{Field: "subject", Reason: "subject must be a shorter timespan than context"}
	ErrModifierWithOrdinal    = &RuleError{Field: "frequency_modifier", Reason: "even/odd cannot be combined with frequency_ordinal"}
	ErrModifierWithStart      = &RuleError{Field: "start", Reason: "even/odd subjects are not counted from a specific start"}
	ErrZeroStart              = &RuleError{Field: "start", Reason: "start can only be zero for the zeroth ISO week of the year"}
	ErrNonPositiveOrdinal     = &RuleError{Field: "frequency_ordinal", Reason: "frequency_ordinal must be positive"}
)
