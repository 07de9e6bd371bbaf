package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
)

// ImportRunner imports everything an importer yields.
type ImportRunner interface {
	RunImporter(ctx context.Context, imp importer.Importer, opts importer.Options) ([]importer.Result, error)
}

// Recomputer refreshes denormalized period data.
type Recomputer interface {
	RecomputeAll(ctx context.Context, ids ...string) (int, error)
}

// ImportJob runs every importer of registry in name order. A failing
// importer does not stop the others. Scheduled imports never force the
// deletion guard.
func ImportJob(spec string, runner ImportRunner, registry *importer.Registry) Job {
	return Job{
		Name: "import",
		Spec: spec,
		Run: func(ctx context.Context) error {
			var errs []error
			for _, name := range registry.Names() {
				if err := ctx.Err(); err != nil {
					return err
				}
				imp, err := registry.Get(name)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				results, err := runner.RunImporter(ctx, imp, importer.Options{})
				if err != nil {
					errs = append(errs, fmt.Errorf("importer %s: %w", name, err))
					continue
				}
				if logger := logging.FromContext(ctx); logger != nil {
					logger.InfoContext(ctx, "importer finished", "importer", name, "batches", len(results))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// RecomputeJob recomputes the hash and text of every resource.
func RecomputeJob(spec string, recomputer Recomputer) Job {
	return Job{
		Name: "recompute",
		Spec: spec,
		Run: func(ctx context.Context) error {
			changed, err := recomputer.RecomputeAll(ctx)
			if err != nil {
				return err
			}
			if logger := logging.FromContext(ctx); logger != nil {
				logger.InfoContext(ctx, "recompute finished", "changed", changed)
			}
			return nil
		},
	}
}
