package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite"
	"github.com/City-of-Helsinki/hauki-sub000/internal/testfixtures"
)

type notification struct {
	resourceID string
	hash       string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) DatePeriodsChanged(_ context.Context, resourceID, hash string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{resourceID: resourceID, hash: hash})
	return nil
}

func (n *recordingNotifier) count(resourceID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		if c.resourceID == resourceID {
			total++
		}
	}
	return total
}

type memoryCache struct {
	mu            sync.Mutex
	entries       map[string]hours.OpeningHours
	hits          int
	invalidations []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]hours.OpeningHours)}
}

func cacheKey(resourceID string, start, end civil.Date) string {
	return resourceID + "|" + start.String() + "|" + end.String()
}

func (c *memoryCache) Get(_ context.Context, resourceID string, start, end civil.Date) (hours.OpeningHours, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	days, ok := c.entries[cacheKey(resourceID, start, end)]
	if ok {
		c.hits++
	}
	return days, ok, nil
}

func (c *memoryCache) Set(_ context.Context, resourceID string, start, end civil.Date, days hours.OpeningHours) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(resourceID, start, end)] = days
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations = append(c.invalidations, resourceID)
	prefix := resourceID + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type env struct {
	storage  *sqlite.Storage
	services testfixtures.Services
	clock    *testfixtures.Clock
	notifier *recordingNotifier
	cache    *memoryCache
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		storage:  testfixtures.NewSQLiteStorage(t),
		clock:    testfixtures.NewClock(testfixtures.ReferenceTime()),
		notifier: &recordingNotifier{},
		cache:    newMemoryCache(),
	}
	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(e.clock),
		testfixtures.WithIDGenerator(testfixtures.NewIDGenerator("gen")),
		testfixtures.WithCache(e.cache),
		testfixtures.WithNotifier(e.notifier),
	)
	e.services = factory.NewServices(e.storage)
	return e
}

func (e *env) createResource(t *testing.T, resource persistence.Resource) persistence.Resource {
	t.Helper()
	created, err := e.services.Resources.CreateResource(context.Background(), resource)
	if err != nil {
		t.Fatalf("create resource %s: %v", resource.ID, err)
	}
	return created
}

func (e *env) savePeriod(t *testing.T, period persistence.DatePeriod) persistence.DatePeriod {
	t.Helper()
	saved, err := e.services.Periods.SavePeriod(context.Background(), period)
	if err != nil {
		t.Fatalf("save period %s: %v", period.ID, err)
	}
	return saved
}

func (e *env) hashOf(t *testing.T, resourceID string) string {
	t.Helper()
	resource, err := e.storage.GetResource(context.Background(), resourceID)
	if err != nil {
		t.Fatalf("get resource %s: %v", resourceID, err)
	}
	return resource.DatePeriodsHash
}

func (e *env) seedDataSource(t *testing.T, id string) {
	t.Helper()
	if err := e.storage.SaveDataSource(context.Background(), persistence.DataSource{ID: id, Name: id}); err != nil {
		t.Fatalf("save data source %s: %v", id, err)
	}
}

func describeDay(elements []hours.TimeElement) string {
	out := ""
	for i, el := range elements {
		if i > 0 {
			out += ", "
		}
		if el.FullDay {
			out += "full_day"
		} else {
			out += fmt.Sprintf("%02d:%02d-%02d:%02d", el.StartTime.Hour, el.StartTime.Minute, el.EndTime.Hour, el.EndTime.Minute)
		}
		out += " " + string(el.State)
	}
	return out
}
