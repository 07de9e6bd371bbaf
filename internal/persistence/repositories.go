package persistence

import (
	"context"

	"github.com/golang-sql/civil"
)

// Transactor runs fn in a single transaction. Repository calls made with
// the context passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DataSourceRepository stores data sources.
type DataSourceRepository interface {
	SaveDataSource(ctx context.Context, source DataSource) error
	GetDataSource(ctx context.Context, id string) (DataSource, error)
}

// ResourceRepository stores resources, their origins and hierarchy edges.
// Removed resources are invisible to every read.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	GetResourceByOrigin(ctx context.Context, origin Origin) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	ListResourcesByDataSource(ctx context.Context, dataSourceID string) ([]Resource, error)
	DeleteResource(ctx context.Context, id string) error
	UpdateDenormalized(ctx context.Context, id, hash, text string) error
	UpdateAncestry(ctx context.Context, id string, ancestry Ancestry) error
	AddChild(ctx context.Context, parentID, childID string) error
	RemoveChild(ctx context.Context, parentID, childID string) error
	ListParentIDs(ctx context.Context, id string) ([]string, error)
	ListChildIDs(ctx context.Context, id string) ([]string, error)
}

// PeriodFilter narrows period listings to those overlapping a date range.
// Nil sides are unbounded.
type PeriodFilter struct {
	StartDate *civil.Date
	EndDate   *civil.Date
}

// DatePeriodRepository stores date periods together with their trees.
// SavePeriod replaces the stored tree of an existing period.
type DatePeriodRepository interface {
	SavePeriod(ctx context.Context, period DatePeriod) error
	GetPeriod(ctx context.Context, id string) (DatePeriod, error)
	GetPeriodByOrigin(ctx context.Context, origin Origin) (DatePeriod, error)
	ListPeriods(ctx context.Context, resourceID string, filter PeriodFilter) ([]DatePeriod, error)
	ListPeriodsByDataSource(ctx context.Context, dataSourceID string) ([]DatePeriod, error)
	DeletePeriod(ctx context.Context, id string) error
}
