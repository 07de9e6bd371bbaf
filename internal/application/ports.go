package application

import (
	"context"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// OpeningHoursCache stores resolved opening hours per resource and date range.
type OpeningHoursCache interface {
	Get(ctx context.Context, resourceID string, start, end civil.Date) (hours.OpeningHours, bool, error)
	Set(ctx context.Context, resourceID string, start, end civil.Date, days hours.OpeningHours) error
	Invalidate(ctx context.Context, resourceID string) error
}

// ChangeNotifier is told when a resource's date periods hash changes.
type ChangeNotifier interface {
	DatePeriodsChanged(ctx context.Context, resourceID, hash string) error
}

// Store is everything the services need from persistence.
type Store interface {
	persistence.Transactor
	persistence.ResourceRepository
	persistence.DatePeriodRepository
}

func toHoursPeriods(periods []persistence.DatePeriod) []hours.DatePeriod {
	out := make([]hours.DatePeriod, len(periods))
	for i, p := range periods {
		out[i] = p.DatePeriod
	}
	return out
}
