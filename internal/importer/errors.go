package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateImporter is returned when two importers share a name.
	ErrDuplicateImporter = errors.New("importer: duplicate importer name")
	// ErrUnknownImporter is returned for names nothing was registered under.
	ErrUnknownImporter = errors.New("importer: unknown importer")
	// ErrAlreadyMarked is returned when a syncher sees the same object twice.
	ErrAlreadyMarked = errors.New("importer: object already marked")
	// ErrSyncherFinished is returned when a finished syncher is used again.
	ErrSyncherFinished = errors.New("importer: syncher already finished")
	// ErrTooManyDeletions guards against wiping data after a sudden source change.
	ErrTooManyDeletions = errors.New("importer: refusing to delete over 20% of tracked objects")
	// ErrInvalidPayload is matched by every PayloadError.
	ErrInvalidPayload = errors.New("importer: invalid payload")
	// ErrUnknownOrigin is returned when a payload refers to an origin that was not imported.
	ErrUnknownOrigin = errors.New("importer: unknown origin")
)

// PayloadError lists the invalid fields of one imported record.
type PayloadError struct {
	Record string
	Fields map[string]string
}

func (e *PayloadError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		fields = append(fields, field+" "+reason)
	}
	sort.Strings(fields)
	return fmt.Sprintf("importer: invalid %s: %s", e.Record, strings.Join(fields, ", "))
}

// Is makes every PayloadError match ErrInvalidPayload.
func (e *PayloadError) Is(target error) bool {
	return target == ErrInvalidPayload
}
