package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// Store is the persistence the runner reads directly. Writes go through
// the application services.
type Store interface {
	persistence.Transactor
	persistence.DataSourceRepository
	persistence.ResourceRepository
	persistence.DatePeriodRepository
}

// Options tunes an import run.
type Options struct {
	// Force allows the syncher to delete over a fifth of the tracked objects.
	Force bool
}

// Result counts what an import run did.
type Result struct {
	DataSource         string
	ResourcesCreated   int
	ResourcesUpdated   int
	ResourcesUnchanged int
	ResourcesDeleted   int
	PeriodsCreated     int
	PeriodsUpdated     int
	PeriodsUnchanged   int
	PeriodsDeleted     int
}

// Runner writes batches into storage. A run is one transaction and one
// deferred recompute scope, so every touched resource is recomputed once
// after commit. Concurrent runs over the same data source are unsupported.
type Runner struct {
	store        Store
	resources    *application.ResourceService
	periods      *application.PeriodService
	denormalizer *application.Denormalizer
	validate     *validator.Validate
	defaultZone  string
	logger       *slog.Logger
}

// NewRunner constructs a runner. An empty defaultZone uses
// application.DefaultTimezone.
func NewRunner(store Store, resources *application.ResourceService, periods *application.PeriodService, denormalizer *application.Denormalizer, defaultZone string, logger *slog.Logger) *Runner {
	if defaultZone == "" {
		defaultZone = application.DefaultTimezone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:        store,
		resources:    resources,
		periods:      periods,
		denormalizer: denormalizer,
		validate:     NewValidator(),
		defaultZone:  defaultZone,
		logger:       logger,
	}
}

func (r *Runner) loggerWith(ctx context.Context, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = r.logger
	}
	return logger.With(append([]any{"service", "Importer"}, attrs...)...)
}

// Run imports one batch.
func (r *Runner) Run(ctx context.Context, batch Batch, opts Options) (result Result, err error) {
	if r == nil {
		return Result{}, fmt.Errorf("Runner is nil")
	}
	result.DataSource = batch.DataSource.ID

	logger := r.loggerWith(ctx, "operation", "Run", "data_source", batch.DataSource.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "import failed", "error", err, "error_kind", application.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "import finished",
			"resources_created", result.ResourcesCreated,
			"resources_updated", result.ResourcesUpdated,
			"resources_deleted", result.ResourcesDeleted,
			"periods_created", result.PeriodsCreated,
			"periods_updated", result.PeriodsUpdated,
			"periods_deleted", result.PeriodsDeleted,
		)
	}()

	if err = r.validateBatch(batch); err != nil {
		return
	}

	err = r.denormalizer.WithinScope(ctx, func(ctx context.Context) error {
		return r.store.WithinTransaction(ctx, func(ctx context.Context) error {
			result = Result{DataSource: batch.DataSource.ID}
			if err := r.ensureDataSources(ctx, batch); err != nil {
				return err
			}
			byOrigin, resourceSyncher, err := r.importResources(ctx, batch, &result, logger)
			if err != nil {
				return err
			}
			periodSyncher, err := r.importPeriods(ctx, batch, byOrigin, &result, logger)
			if err != nil {
				return err
			}

			deleted, err := periodSyncher.Finish(ctx, opts.Force)
			if err != nil {
				return err
			}
			result.PeriodsDeleted = len(deleted)
			deleted, err = resourceSyncher.Finish(ctx, opts.Force)
			if err != nil {
				return err
			}
			result.ResourcesDeleted = len(deleted)
			return nil
		})
	})
	return
}

func (r *Runner) validateBatch(batch Batch) error {
	if batch.DataSource.ID == "" {
		return &PayloadError{Record: "data_source", Fields: map[string]string{"id": "is required"}}
	}
	for i, res := range batch.Resources {
		if err := validateRecord(r.validate, fmt.Sprintf("resources[%d]", i), res); err != nil {
			return err
		}
	}
	for i, p := range batch.Periods {
		if err := validateRecord(r.validate, fmt.Sprintf("periods[%d]", i), p); err != nil {
			return err
		}
	}
	return nil
}

// ensureDataSources stores the batch's data source and creates any other
// data source its origins mention.
func (r *Runner) ensureDataSources(ctx context.Context, batch Batch) error {
	if err := r.store.SaveDataSource(ctx, batch.DataSource); err != nil {
		return fmt.Errorf("importer: save data source: %w", err)
	}
	seen := map[string]struct{}{batch.DataSource.ID: {}}
	var referenced []OriginData
	for _, res := range batch.Resources {
		referenced = append(referenced, res.Origins...)
		referenced = append(referenced, res.Parents...)
	}
	for _, p := range batch.Periods {
		referenced = append(referenced, p.Origins...)
		referenced = append(referenced, p.Resource)
	}
	for _, o := range referenced {
		if _, ok := seen[o.DataSourceID]; ok {
			continue
		}
		seen[o.DataSourceID] = struct{}{}
		_, err := r.store.GetDataSource(ctx, o.DataSourceID)
		if errors.Is(err, persistence.ErrNotFound) {
			err = r.store.SaveDataSource(ctx, persistence.DataSource{ID: o.DataSourceID, Name: o.DataSourceID})
		}
		if err != nil {
			return fmt.Errorf("importer: data source %s: %w", o.DataSourceID, err)
		}
	}
	return nil
}

func (r *Runner) importResources(ctx context.Context, batch Batch, result *Result, logger *slog.Logger) (map[string]string, *Syncher, error) {
	existing, err := r.store.ListResourcesByDataSource(ctx, batch.DataSource.ID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, res := range existing {
		ids = append(ids, res.ID)
	}
	syncher := NewSyncher("resource", ids, r.resources.DeleteResource)

	byOrigin := make(map[string]string)
	for i, data := range batch.Resources {
		incoming := data.resource(r.defaultZone)
		stored, err := r.findResource(ctx, data.Origins)
		var id string
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			created, err := r.resources.CreateResource(ctx, incoming)
			if err != nil {
				return nil, nil, fmt.Errorf("importer: create resources[%d] %s: %w", i, data.Origins[0], err)
			}
			id = created.ID
			result.ResourcesCreated++
		case err != nil:
			return nil, nil, err
		default:
			id = stored.ID
			incoming.ID = stored.ID
			diff := ReconcileResource(stored, incoming)
			if diff.Empty() {
				result.ResourcesUnchanged++
				break
			}
			if _, err := r.resources.UpdateResource(ctx, incoming); err != nil {
				return nil, nil, fmt.Errorf("importer: update resource %s: %w", id, err)
			}
			logger.DebugContext(ctx, "resource changed", "resource_id", id, "changes", diff.Changes())
			result.ResourcesUpdated++
		}
		if err := syncher.Mark(id); err != nil {
			return nil, nil, err
		}
		for _, o := range data.Origins {
			byOrigin[o.String()] = id
		}
	}

	// Parents are linked once every resource of the batch exists.
	for _, data := range batch.Resources {
		childID := byOrigin[data.Origins[0].String()]
		if err := r.syncParents(ctx, childID, data.Parents, byOrigin); err != nil {
			return nil, nil, err
		}
	}
	return byOrigin, syncher, nil
}

func (r *Runner) syncParents(ctx context.Context, childID string, parents []OriginData, byOrigin map[string]string) error {
	want := make(map[string]struct{}, len(parents))
	for _, p := range parents {
		id, err := r.resolveResource(ctx, byOrigin, p)
		if err != nil {
			return err
		}
		want[id] = struct{}{}
	}
	have, err := r.store.ListParentIDs(ctx, childID)
	if err != nil {
		return err
	}
	current := make(map[string]struct{}, len(have))
	for _, id := range have {
		current[id] = struct{}{}
		if _, ok := want[id]; !ok {
			if err := r.resources.RemoveChild(ctx, id, childID); err != nil {
				return fmt.Errorf("importer: unlink %s from %s: %w", childID, id, err)
			}
		}
	}
	for id := range want {
		if _, ok := current[id]; ok {
			continue
		}
		if err := r.resources.AddChild(ctx, id, childID); err != nil {
			return fmt.Errorf("importer: link %s under %s: %w", childID, id, err)
		}
	}
	return nil
}

func (r *Runner) importPeriods(ctx context.Context, batch Batch, byOrigin map[string]string, result *Result, logger *slog.Logger) (*Syncher, error) {
	existing, err := r.store.ListPeriodsByDataSource(ctx, batch.DataSource.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, p := range existing {
		ids = append(ids, p.ID)
	}
	syncher := NewSyncher("date period", ids, r.periods.DeletePeriod)

	for i, data := range batch.Periods {
		resourceID, err := r.resolveResource(ctx, byOrigin, data.Resource)
		if err != nil {
			return nil, err
		}
		incoming, err := data.period(resourceID)
		if err != nil {
			return nil, &PayloadError{Record: fmt.Sprintf("periods[%d]", i), Fields: map[string]string{"value": err.Error()}}
		}
		normalizeRules(&incoming)

		stored, err := r.findPeriod(ctx, data.Origins)
		var id string
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			saved, err := r.periods.SavePeriod(ctx, incoming)
			if err != nil {
				return nil, fmt.Errorf("importer: create periods[%d] %s: %w", i, data.Origins[0], err)
			}
			id = saved.ID
			result.PeriodsCreated++
		case err != nil:
			return nil, err
		default:
			id = stored.ID
			diff := ReconcilePeriod(stored, incoming)
			if diff.Empty() {
				result.PeriodsUnchanged++
				break
			}
			adoptIdentifiers(stored, &incoming)
			if _, err := r.periods.SavePeriod(ctx, incoming); err != nil {
				return nil, fmt.Errorf("importer: update period %s: %w", id, err)
			}
			logger.DebugContext(ctx, "date period changed", "period_id", id, "changes", diff.Changes())
			result.PeriodsUpdated++
		}
		if err := syncher.Mark(id); err != nil {
			return nil, err
		}
	}
	return syncher, nil
}

// normalizeRules applies the defaults rule validation fills in, so that
// unchanged source rules compare equal to stored ones.
func normalizeRules(p *persistence.DatePeriod) {
	for gi := range p.Groups {
		for ri, rule := range p.Groups[gi].Rules {
			if normalized, err := rule.Validate(p.Bounds()); err == nil {
				p.Groups[gi].Rules[ri] = normalized
			}
		}
	}
}

func (r *Runner) resolveResource(ctx context.Context, byOrigin map[string]string, origin OriginData) (string, error) {
	if id, ok := byOrigin[origin.String()]; ok {
		return id, nil
	}
	res, err := r.store.GetResourceByOrigin(ctx, origin.origin())
	if errors.Is(err, persistence.ErrNotFound) {
		return "", fmt.Errorf("%w: resource %s", ErrUnknownOrigin, origin)
	}
	if err != nil {
		return "", err
	}
	byOrigin[origin.String()] = res.ID
	return res.ID, nil
}

func (r *Runner) findResource(ctx context.Context, origins []OriginData) (persistence.Resource, error) {
	for _, o := range origins {
		res, err := r.store.GetResourceByOrigin(ctx, o.origin())
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		return res, err
	}
	return persistence.Resource{}, persistence.ErrNotFound
}

func (r *Runner) findPeriod(ctx context.Context, origins []OriginData) (persistence.DatePeriod, error) {
	for _, o := range origins {
		p, err := r.store.GetPeriodByOrigin(ctx, o.origin())
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		return p, err
	}
	return persistence.DatePeriod{}, persistence.ErrNotFound
}

// RunImporter fetches every batch of imp and imports them in order.
func (r *Runner) RunImporter(ctx context.Context, imp Importer, opts Options) ([]Result, error) {
	batches, err := imp.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("importer: fetch %s: %w", imp.Name(), err)
	}
	results := make([]Result, 0, len(batches))
	for _, batch := range batches {
		result, err := r.Run(ctx, batch, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
