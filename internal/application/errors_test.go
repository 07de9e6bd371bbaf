package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{"nil", nil, ""},
		{"no fields", &ValidationError{}, "validation failed"},
		{"single field", &ValidationError{FieldErrors: map[string]string{"name": "required"}}, "validation failed: name"},
		{
			"fields are sorted",
			&ValidationError{FieldErrors: map[string]string{"time_spans": "x", "end_date": "y", "resource": "z"}},
			"validation failed: end_date, resource, time_spans",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.err.Error(); got != tc.want {
				t.Fatalf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidationError_CollectsFields(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	if nilErr.HasErrors() {
		t.Fatal("nil validation error reports fields")
	}

	rules := &ValidationError{}
	rules.add("rules", "frequency must be positive")
	rules.add("rules", "unknown context")

	period := &ValidationError{}
	period.add("end_date", "before start date")
	period.merge(rules)
	period.merge(nil)
	period.merge(&ValidationError{})

	if !period.HasErrors() || len(period.FieldErrors) != 2 {
		t.Fatalf("expected two fields, got %v", period.FieldErrors)
	}
	if got := period.FieldErrors["rules"]; got != "unknown context" {
		t.Fatalf("expected the last message per field to win, got %q", got)
	}

	var target *ValidationError
	if !errors.As(fmt.Errorf("save period: %w", period), &target) || target != period {
		t.Fatal("expected validation error to survive wrapping")
	}
}
