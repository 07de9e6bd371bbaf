package persistence

import (
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
)

// DataSource is an external system resources and periods are imported from.
type DataSource struct {
	ID          string
	Name        string
	Description string
}

// Origin links a record to its identifier in a data source.
type Origin struct {
	DataSourceID string
	OriginID     string
}

// Ancestry holds the fields derived from a resource's ancestors. A nil
// IsPublic means the resource has no parents.
type Ancestry struct {
	IsPublic      *bool
	DataSources   []string
	Organizations []string
}

// Resource is an organizational entity owning date periods.
type Resource struct {
	ID                string
	Name              string
	Description       string
	Address           string
	ResourceType      hours.ResourceType
	Organization      string
	Timezone          string
	IsPublic          bool
	Origins           []Origin
	Ancestry          Ancestry
	DatePeriodsHash   string
	DatePeriodsAsText string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DatePeriod is a stored period with its full group, span and rule tree.
type DatePeriod struct {
	hours.DatePeriod
	Origins   []Origin
	CreatedAt time.Time
	UpdatedAt time.Time
}
