package importer_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite"
	"github.com/City-of-Helsinki/hauki-sub000/internal/testfixtures"
)

var librariesFile = filepath.Join("testdata", "libraries.yaml")

type countingNotifier struct {
	mu     sync.Mutex
	counts map[string]int
}

func (n *countingNotifier) DatePeriodsChanged(_ context.Context, resourceID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[resourceID]++
	return nil
}

func (n *countingNotifier) count(resourceID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[resourceID]
}

type importEnv struct {
	storage  *sqlite.Storage
	services testfixtures.Services
	runner   *importer.Runner
	notifier *countingNotifier
}

func newImportEnv(t *testing.T) *importEnv {
	t.Helper()
	storage := testfixtures.NewSQLiteStorage(t)
	notifier := &countingNotifier{counts: make(map[string]int)}
	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(testfixtures.NewClock(testfixtures.ReferenceTime())),
		testfixtures.WithNotifier(notifier),
	)
	services := factory.NewServices(storage)
	return &importEnv{
		storage:  storage,
		services: services,
		runner:   importer.NewRunner(storage, services.Resources, services.Periods, services.Denormalizer, "", nil),
		notifier: notifier,
	}
}

func loadLibraries(t *testing.T) importer.Batch {
	t.Helper()
	batch, err := importer.LoadFile(librariesFile)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	return batch
}

func (e *importEnv) run(t *testing.T, batch importer.Batch, opts importer.Options) importer.Result {
	t.Helper()
	result, err := e.runner.Run(context.Background(), batch, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func (e *importEnv) resourceByOrigin(t *testing.T, originID string) persistence.Resource {
	t.Helper()
	res, err := e.storage.GetResourceByOrigin(context.Background(), persistence.Origin{DataSourceID: "kirkanta", OriginID: originID})
	if err != nil {
		t.Fatalf("GetResourceByOrigin %s failed: %v", originID, err)
	}
	return res
}

func (e *importEnv) periodByOrigin(t *testing.T, originID string) persistence.DatePeriod {
	t.Helper()
	p, err := e.storage.GetPeriodByOrigin(context.Background(), persistence.Origin{DataSourceID: "kirkanta", OriginID: originID})
	if err != nil {
		t.Fatalf("GetPeriodByOrigin %s failed: %v", originID, err)
	}
	return p
}

func TestRunner_ImportLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newImportEnv(t)

	first := env.run(t, loadLibraries(t), importer.Options{})
	want := importer.Result{DataSource: "kirkanta", ResourcesCreated: 2, PeriodsCreated: 2}
	if first != want {
		t.Fatalf("unexpected first result %+v", first)
	}

	central := env.resourceByOrigin(t, "84")
	reading := env.resourceByOrigin(t, "84-reading")
	if central.Name != "Central Library" || central.Timezone != "Europe/Helsinki" || !central.IsPublic {
		t.Fatalf("unexpected central resource %+v", central)
	}
	parents, err := env.storage.ListParentIDs(ctx, reading.ID)
	if err != nil || !reflect.DeepEqual(parents, []string{central.ID}) {
		t.Fatalf("expected reading room under central library, got %v, %v", parents, err)
	}
	if reading.Ancestry.IsPublic == nil || !*reading.Ancestry.IsPublic {
		t.Fatalf("expected public ancestry, got %v", reading.Ancestry.IsPublic)
	}
	if !reflect.DeepEqual(reading.Ancestry.DataSources, []string{"kirkanta"}) {
		t.Fatalf("unexpected ancestry data sources %v", reading.Ancestry.DataSources)
	}
	for _, id := range []string{central.ID, reading.ID} {
		if got := env.notifier.count(id); got != 1 {
			t.Fatalf("expected one recompute notification for %s, got %d", id, got)
		}
	}
	autumn := env.periodByOrigin(t, "autumn-2020")
	weekdaySpanID := autumn.Groups[0].TimeSpans[0].ID

	second := env.run(t, loadLibraries(t), importer.Options{})
	want = importer.Result{DataSource: "kirkanta", ResourcesUnchanged: 2, PeriodsUnchanged: 2}
	if second != want {
		t.Fatalf("expected an unchanged source to be a no-op, got %+v", second)
	}
	if got := env.notifier.count(central.ID); got != 1 {
		t.Fatalf("expected no notification for an unchanged source, got %d", got)
	}

	changed := loadLibraries(t)
	changed.Resources = changed.Resources[:1]
	changed.Resources[0].Name = "Central Library Oodi"
	changed.Periods = changed.Periods[:1]
	changed.Periods[0].Groups[0].TimeSpans[0].EndTime = "21:00"

	third := env.run(t, changed, importer.Options{})
	want = importer.Result{DataSource: "kirkanta", ResourcesUpdated: 1, ResourcesDeleted: 1, PeriodsUpdated: 1, PeriodsDeleted: 1}
	if third != want {
		t.Fatalf("unexpected third result %+v", third)
	}
	if got := env.resourceByOrigin(t, "84").Name; got != "Central Library Oodi" {
		t.Fatalf("expected renamed resource, got %q", got)
	}
	if _, err := env.storage.GetResourceByOrigin(ctx, persistence.Origin{DataSourceID: "kirkanta", OriginID: "84-reading"}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected dropped resource to be removed, got %v", err)
	}
	children, err := env.storage.ListChildIDs(ctx, central.ID)
	if err != nil || len(children) != 0 {
		t.Fatalf("expected no children after removal, got %v, %v", children, err)
	}
	autumn = env.periodByOrigin(t, "autumn-2020")
	if autumn.Groups[0].TimeSpans[0].ID != weekdaySpanID {
		t.Fatalf("expected the updated span to keep its identifier")
	}
	if got := autumn.Groups[0].TimeSpans[0].EndTime.Hour; got != 21 {
		t.Fatalf("expected end time 21, got %d", got)
	}
	if got := env.notifier.count(central.ID); got != 2 {
		t.Fatalf("expected one more notification after the span change, got %d", got)
	}

	fourth := env.run(t, loadLibraries(t), importer.Options{})
	want = importer.Result{DataSource: "kirkanta", ResourcesCreated: 1, ResourcesUpdated: 1, PeriodsCreated: 1, PeriodsUpdated: 1}
	if fourth != want {
		t.Fatalf("unexpected fourth result %+v", fourth)
	}
	revived := env.resourceByOrigin(t, "84-reading")
	if revived.ID == reading.ID {
		t.Fatalf("expected a new resource for the re-imported origin")
	}
	if p := env.periodByOrigin(t, "reading-evenings"); p.ResourceID != revived.ID {
		t.Fatalf("expected re-imported period on %s, got %s", revived.ID, p.ResourceID)
	}
}

func TestRunner_RejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	env := newImportEnv(t)
	batch := loadLibraries(t)
	batch.Resources[1].Name = ""

	_, err := env.runner.Run(context.Background(), batch, importer.Options{})
	if !errors.Is(err, importer.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	var payloadErr *importer.PayloadError
	if !errors.As(err, &payloadErr) || payloadErr.Record != "resources[1]" {
		t.Fatalf("expected the failing record to be named, got %v", err)
	}
	if _, err := env.storage.GetDataSource(context.Background(), "kirkanta"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestRunner_RollsBackOnUnknownOrigin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newImportEnv(t)
	batch := loadLibraries(t)
	batch.Periods[1].Resource.OriginID = "closed-branch"

	if _, err := env.runner.Run(ctx, batch, importer.Options{}); !errors.Is(err, importer.ErrUnknownOrigin) {
		t.Fatalf("expected ErrUnknownOrigin, got %v", err)
	}
	if _, err := env.storage.GetResourceByOrigin(ctx, persistence.Origin{DataSourceID: "kirkanta", OriginID: "84"}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected the run to be rolled back, got %v", err)
	}
	resources, err := env.storage.ListResources(ctx)
	if err != nil || len(resources) != 0 {
		t.Fatalf("expected no resources, got %d, %v", len(resources), err)
	}
}

func branches(n int) importer.Batch {
	batch := importer.Batch{DataSource: persistence.DataSource{ID: "tprek", Name: "Palvelukartta"}}
	for i := 1; i <= n; i++ {
		batch.Resources = append(batch.Resources, importer.ResourceData{
			Origins: []importer.OriginData{{DataSourceID: "tprek", OriginID: fmt.Sprint(i)}},
			Name:    fmt.Sprintf("Branch %d", i),
		})
	}
	return batch
}

func TestRunner_DeletionGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newImportEnv(t)
	env.run(t, branches(7), importer.Options{})

	if _, err := env.runner.Run(ctx, branches(1), importer.Options{}); !errors.Is(err, importer.ErrTooManyDeletions) {
		t.Fatalf("expected ErrTooManyDeletions, got %v", err)
	}
	resources, err := env.storage.ListResourcesByDataSource(ctx, "tprek")
	if err != nil || len(resources) != 7 {
		t.Fatalf("expected all 7 resources to survive a refused run, got %d, %v", len(resources), err)
	}

	result := env.run(t, branches(1), importer.Options{Force: true})
	if result.ResourcesDeleted != 6 || result.ResourcesUnchanged != 1 {
		t.Fatalf("unexpected forced result %+v", result)
	}
}

func TestRunner_RunImporter(t *testing.T) {
	t.Parallel()

	env := newImportEnv(t)
	results, err := env.runner.RunImporter(context.Background(), importer.NewFileSource("kirkanta", librariesFile), importer.Options{})
	if err != nil {
		t.Fatalf("RunImporter failed: %v", err)
	}
	if len(results) != 1 || results[0].ResourcesCreated != 2 || results[0].PeriodsCreated != 2 {
		t.Fatalf("unexpected results %+v", results)
	}

	broken := importer.NewFileSource("broken", filepath.Join("testdata", "missing.yaml"))
	if _, err := env.runner.RunImporter(context.Background(), broken, importer.Options{}); err == nil {
		t.Fatalf("expected fetch error")
	}
}
