package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource or period does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record with the same identity exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrCopyToSelf is returned when periods are copied onto their own resource.
	ErrCopyToSelf = errors.New("application: cannot copy periods to the source resource")
	// ErrHierarchyCycle is returned when a parent link would make a resource its own ancestor.
	ErrHierarchyCycle = errors.New("application: resource hierarchy cycle")
	// ErrInvalidDateRange is returned when a query ends before it starts.
	ErrInvalidDateRange = errors.New("application: end date is before start date")
	// ErrDeferredScope is returned when a deferred recompute scope is misused.
	ErrDeferredScope = errors.New("application: deferred recompute scope already ended")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
