package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrCopyToSelf):
		return "copy_to_self"
	case errors.Is(err, ErrHierarchyCycle):
		return "hierarchy_cycle"
	case errors.Is(err, ErrInvalidDateRange):
		return "invalid_date_range"
	case errors.Is(err, ErrDeferredScope):
		return "deferred_scope"
	case errors.Is(err, recurrence.ErrInvalidRule):
		return "invalid_rule"
	case errors.Is(err, persistence.ErrLocked):
		return "locked"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// mapRepoError translates persistence failures into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("date_period", "start date must not be after end date")
		return vErr
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("resource", "related records are missing")
		return vErr
	}
	return err
}
