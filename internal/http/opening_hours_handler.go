package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
	"github.com/City-of-Helsinki/hauki-sub000/internal/export"
	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

type openingHoursService interface {
	Today() civil.Date
	Resource(ctx context.Context, id string) (persistence.Resource, error)
	OpeningHours(ctx context.Context, resourceID string, start, end civil.Date) (hours.OpeningHours, error)
	IsOpenNow(ctx context.Context, resourceID string, other *time.Location) (application.OpenNowResult, error)
}

// OpeningHoursHandler serves the read side of a resource's opening hours.
type OpeningHoursHandler struct {
	service   openingHoursService
	responder responder
	logger    *slog.Logger
}

func NewOpeningHoursHandler(service openingHoursService, logger *slog.Logger) *OpeningHoursHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpeningHoursHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *OpeningHoursHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "OpeningHoursHandler", operation, attrs...)
}

// dateRange reads start_date and end_date, both required and possibly
// relative to today.
func (h *OpeningHoursHandler) dateRange(r *http.Request) (start, end civil.Date, err error) {
	q := r.URL.Query()
	rawStart, rawEnd := strings.TrimSpace(q.Get("start_date")), strings.TrimSpace(q.Get("end_date"))
	if rawStart == "" || rawEnd == "" {
		return start, end, errMissingDates
	}
	today := h.service.Today()
	if start, err = hours.ParseMaybeRelativeDate(rawStart, false, today); err != nil {
		return start, end, errInvalidStartDate
	}
	if end, err = hours.ParseMaybeRelativeDate(rawEnd, true, today); err != nil {
		return start, end, errInvalidEndDate
	}
	if end.Before(start) {
		return start, end, errDatesReversed
	}
	return start, end, nil
}

func (h *OpeningHoursHandler) OpeningHours(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	id := resourceIDFromRequest(r)

	start, end, err := h.dateRange(r)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(ctx, "OpeningHours", "resource_id", id)
	days, err := h.service.OpeningHours(ctx, id, start, end)
	if err != nil {
		logger.ErrorContext(ctx, "opening hours query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toDailyDTOs(days))
}

func (h *OpeningHoursHandler) OpeningHoursICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	id := resourceIDFromRequest(r)

	start, end, err := h.dateRange(r)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(ctx, "OpeningHoursICS", "resource_id", id)
	fail := func(err error) {
		logger.ErrorContext(ctx, "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
	}

	resource, err := h.service.Resource(ctx, id)
	if err != nil {
		fail(err)
		return
	}
	days, err := h.service.OpeningHours(ctx, id, start, end)
	if err != nil {
		fail(err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteICS(&buf, resource, days); err != nil {
		fail(err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WarnContext(ctx, "failed to write calendar", "error", err)
	}
}

func (h *OpeningHoursHandler) IsOpenNow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	id := resourceIDFromRequest(r)

	var other *time.Location
	if name := strings.TrimSpace(r.URL.Query().Get("timezone")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errUnknownTimezone)
			return
		}
		other = loc
	}

	logger := h.log(ctx, "IsOpenNow", "resource_id", id)
	result, err := h.service.IsOpenNow(ctx, id, other)
	if err != nil {
		logger.ErrorContext(ctx, "is open now query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	resp := isOpenNowResponse{
		IsOpen:               result.IsOpen,
		ResourceTimezone:     result.Location.String(),
		ResourceTimeNow:      result.Now,
		MatchingOpeningHours: make([]timeElementDTO, 0, len(result.Matches)),
		Resource:             toResourceDTO(result.Resource),
	}
	for _, m := range result.Matches {
		resp.MatchingOpeningHours = append(resp.MatchingOpeningHours, toTimeElementDTO(m.Element))
	}
	if other != nil {
		otherNow := result.Now.In(other)
		resp.OtherTimezone = other.String()
		resp.OtherTimezoneTimeNow = &otherNow
		resp.MatchingOpeningHoursInOtherTZ = make([]timeElementDTO, 0, len(result.OtherZone))
		for _, m := range result.OtherZone {
			resp.MatchingOpeningHoursInOtherTZ = append(resp.MatchingOpeningHoursInOtherTZ, toZonedDTO(m))
		}
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *OpeningHoursHandler) DatePeriodsAsText(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	id := resourceIDFromRequest(r)

	resource, err := h.service.Resource(ctx, id)
	if err != nil {
		h.log(ctx, "DatePeriodsAsText", "resource_id", id).
			ErrorContext(ctx, "resource lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, datePeriodsAsTextResponse{
		DatePeriodsHash:   resource.DatePeriodsHash,
		DatePeriodsAsText: resource.DatePeriodsAsText,
	})
}
