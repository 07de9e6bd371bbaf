package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// DefaultTimezone is used for resources without a valid timezone of their own.
const DefaultTimezone = "Europe/Helsinki"

// OpeningHoursService answers opening hours queries for resources.
type OpeningHoursService struct {
	store       Store
	cache       OpeningHoursCache
	defaultZone *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewOpeningHoursService constructs the query service. cache and
// defaultZone may be nil.
func NewOpeningHoursService(store Store, cache OpeningHoursCache, defaultZone *time.Location, now func() time.Time, logger *slog.Logger) *OpeningHoursService {
	if now == nil {
		now = time.Now
	}
	if defaultZone == nil {
		if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
			defaultZone = loc
		} else {
			defaultZone = time.UTC
		}
	}
	return &OpeningHoursService{store: store, cache: cache, defaultZone: defaultZone, now: now, logger: defaultLogger(logger)}
}

func (s *OpeningHoursService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OpeningHoursService", operation, attrs...)
}

// Today returns the current date in the default timezone. Relative query
// dates are resolved against it.
func (s *OpeningHoursService) Today() civil.Date {
	return civil.DateOf(s.now().In(s.defaultZone))
}

// Resource returns a live resource.
func (s *OpeningHoursService) Resource(ctx context.Context, id string) (persistence.Resource, error) {
	if s == nil {
		return persistence.Resource{}, fmt.Errorf("OpeningHoursService is nil")
	}
	resource, err := s.store.GetResource(ctx, id)
	return resource, mapRepoError(err)
}

// ResolveResource looks a resource up by its identifier or, failing that,
// by a "data_source:origin_id" reference such as "tprek:8215".
func (s *OpeningHoursService) ResolveResource(ctx context.Context, ref string) (persistence.Resource, error) {
	if s == nil {
		return persistence.Resource{}, fmt.Errorf("OpeningHoursService is nil")
	}
	resource, err := s.store.GetResource(ctx, ref)
	if !errors.Is(err, persistence.ErrNotFound) {
		return resource, mapRepoError(err)
	}
	source, origin, ok := strings.Cut(ref, ":")
	if !ok || source == "" || origin == "" {
		return persistence.Resource{}, mapRepoError(err)
	}
	resource, err = s.store.GetResourceByOrigin(ctx, persistence.Origin{DataSourceID: source, OriginID: origin})
	return resource, mapRepoError(err)
}

// OpeningHours resolves the resource's daily opening hours from start to
// end inclusive.
func (s *OpeningHoursService) OpeningHours(ctx context.Context, resourceID string, start, end civil.Date) (days hours.OpeningHours, err error) {
	if s == nil {
		err = fmt.Errorf("OpeningHoursService is nil")
		return
	}

	logger := s.loggerWith(ctx, "OpeningHours",
		"resource_id", resourceID,
		"start_date", start.String(),
		"end_date", end.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve opening hours", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if end.Before(start) {
		err = ErrInvalidDateRange
		return
	}
	if _, err = s.store.GetResource(ctx, resourceID); err != nil {
		err = mapRepoError(err)
		return
	}

	if s.cache != nil {
		cached, ok, cerr := s.cache.Get(ctx, resourceID, start, end)
		if cerr != nil {
			logger.WarnContext(ctx, "opening hours cache read failed", "error", cerr)
		}
		if ok {
			logger.DebugContext(ctx, "opening hours served from cache")
			return cached, nil
		}
	}

	from := start.AddDays(-1)
	periods, err := s.store.ListPeriods(ctx, resourceID, persistence.PeriodFilter{StartDate: &from, EndDate: &end})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	days = hours.ResolveOpeningHours(toHoursPeriods(periods), start, end)
	logger.DebugContext(ctx, "opening hours resolved", "periods", len(periods), "days", len(days))

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, resourceID, start, end, days); cerr != nil {
			logger.WarnContext(ctx, "opening hours cache write failed", "error", cerr)
		}
	}
	return days, nil
}

// OpenNowResult is the answer to an is-open-now query.
type OpenNowResult struct {
	Resource persistence.Resource
	// Now is the query instant in the resource's timezone.
	Now      time.Time
	Location *time.Location
	Date     civil.Date
	IsOpen   bool
	// Matches are the open elements of the day containing Now.
	Matches []hours.Interval
	// OtherZone holds Matches re-expressed in the requested timezone.
	OtherZone []hours.Interval
}

// IsOpenNow reports whether the resource is in an open state right now.
// When other is given, matches are also expressed in that zone.
func (s *OpeningHoursService) IsOpenNow(ctx context.Context, resourceID string, other *time.Location) (result OpenNowResult, err error) {
	if s == nil {
		err = fmt.Errorf("OpeningHoursService is nil")
		return
	}

	result.Resource, err = s.store.GetResource(ctx, resourceID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result.Location = s.zoneOf(result.Resource)
	result.Now = s.now().In(result.Location)
	result.Date = civil.DateOf(result.Now)

	days, err := s.OpeningHours(ctx, resourceID, result.Date, result.Date)
	if err != nil {
		return
	}
	elements, _ := days.Get(result.Date)
	result.Matches = hours.OpenAt(elements, result.Date, result.Now, result.Location)
	result.IsOpen = len(result.Matches) > 0

	if other != nil {
		for _, m := range result.Matches {
			result.OtherZone = append(result.OtherZone, m.In(other))
		}
	}

	s.loggerWith(ctx, "IsOpenNow", "resource_id", resourceID).
		DebugContext(ctx, "is open now resolved", "is_open", result.IsOpen)
	return result, nil
}

func (s *OpeningHoursService) zoneOf(resource persistence.Resource) *time.Location {
	if resource.Timezone != "" {
		if loc, err := time.LoadLocation(resource.Timezone); err == nil {
			return loc
		}
	}
	return s.defaultZone
}
