package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
)

var (
	errMissingDates     = errors.New("start_date and end_date parameters are required")
	errInvalidStartDate = errors.New("invalid start_date")
	errInvalidEndDate   = errors.New("invalid end_date")
	errDatesReversed    = errors.New("start_date must be before end_date")
	errUnknownTimezone  = errors.New("unknown timezone")
	errMissingTargets   = errors.New("target_resources parameter is required")
)

// serviceErrors maps application sentinels to responses, first match wins.
var serviceErrors = []struct {
	target  error
	status  int
	message string
}{
	{application.ErrNotFound, http.StatusNotFound, "resource not found"},
	{application.ErrCopyToSelf, http.StatusBadRequest, "cannot copy date periods to self"},
	{application.ErrInvalidDateRange, http.StatusBadRequest, errDatesReversed.Error()},
	{application.ErrAlreadyExists, http.StatusConflict, "already exists"},
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: logger}
}

// writeJSON encodes payload before touching w, so an encoding failure
// still yields a well-formed 500.
func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err, "status", status)
		http.Error(w, `{"message":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeError responds with err's message, or the status text when err is nil.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: "validation failed", Errors: vErr.FieldErrors})
		return
	}
	for _, e := range serviceErrors {
		if errors.Is(err, e.target) {
			r.writeJSON(ctx, w, e.status, errorResponse{Message: e.message})
			return
		}
	}
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
