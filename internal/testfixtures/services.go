package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
)

// ServiceFactory builds application services with a fixed clock and
// sequential IDs. Cache and Notifier stay nil unless set.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Cache       application.OpeningHoursCache
	Notifier    application.ChangeNotifier
	Logger      *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	f := &ServiceFactory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.Clock == nil {
		f.Clock = NewClock(time.Time{})
	}
	if f.IDGenerator == nil {
		f.IDGenerator = NewIDGenerator("id")
	}
	return f
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.IDGenerator = generator }
}

// WithCache shares cache between the denormalizer and the read path.
func WithCache(cache application.OpeningHoursCache) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Cache = cache }
}

func WithNotifier(notifier application.ChangeNotifier) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Notifier = notifier }
}

// Services bundles the application services over one store.
type Services struct {
	Denormalizer *application.Denormalizer
	Periods      *application.PeriodService
	Resources    *application.ResourceService
	OpeningHours *application.OpeningHoursService
}

// NewServices wires every application service to store.
func (f *ServiceFactory) NewServices(store application.Store) Services {
	now, newID := f.Clock.NowFunc(), f.IDGenerator.NextFunc()
	denormalizer := application.NewDenormalizer(store, f.Cache, f.Notifier, f.Logger)
	return Services{
		Denormalizer: denormalizer,
		Periods:      application.NewPeriodService(store, denormalizer, newID, f.Logger),
		Resources:    application.NewResourceService(store, denormalizer, newID, now, f.Logger),
		OpeningHours: application.NewOpeningHoursService(store, f.Cache, nil, now, f.Logger),
	}
}

// NewSQLiteServices is NewServices over NewSQLiteStorage.
func (f *ServiceFactory) NewSQLiteServices(tb testing.TB) Services {
	tb.Helper()
	return f.NewServices(NewSQLiteStorage(tb))
}
