package application

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrCopyToSelf, "copy_to_self"},
		{ErrHierarchyCycle, "hierarchy_cycle"},
		{recurrence.ErrPeriodContextUnbounded, "invalid_rule"},
		{&ValidationError{FieldErrors: map[string]string{"a": "b"}}, "validation"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	if err := mapRepoError(persistence.ErrNotFound); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mapRepoError(persistence.ErrDuplicate); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	var vErr *ValidationError
	if err := mapRepoError(fmt.Errorf("x: %w", persistence.ErrForeignKeyViolation)); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
