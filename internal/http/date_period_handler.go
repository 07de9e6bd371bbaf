package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
)

type periodCopier interface {
	CopyPeriodsToResource(ctx context.Context, sourceID string, targetIDs, periodIDs []string, replace bool) error
}

// DatePeriodHandler serves writes to date periods.
type DatePeriodHandler struct {
	service   periodCopier
	responder responder
	logger    *slog.Logger
}

func NewDatePeriodHandler(service periodCopier, logger *slog.Logger) *DatePeriodHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatePeriodHandler{service: service, responder: newResponder(logger), logger: logger}
}

// CopyDatePeriods copies the resource's periods, or only those listed in
// date_periods, onto every resource in target_resources. With replace the
// targets' own periods are removed first.
func (h *DatePeriodHandler) CopyDatePeriods(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	id := resourceIDFromRequest(r)
	q := r.URL.Query()

	targets := splitList(q.Get("target_resources"))
	if len(targets) == 0 {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingTargets)
		return
	}
	replace := false
	switch strings.ToLower(strings.TrimSpace(q.Get("replace"))) {
	case "1", "true", "yes":
		replace = true
	}
	periods := splitList(q.Get("date_periods"))

	logger := handlerLogger(ctx, h.logger, "DatePeriodHandler", "CopyDatePeriods",
		"resource_id", id,
		"targets", targets,
		"replace", replace,
	)
	if err := h.service.CopyPeriodsToResource(ctx, id, targets, periods, replace); err != nil {
		logger.ErrorContext(ctx, "copying date periods failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "date periods copied")
	h.responder.writeJSON(ctx, w, http.StatusOK, messageResponse{Message: "Date periods copied"})
}

// splitList splits a comma separated parameter, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
