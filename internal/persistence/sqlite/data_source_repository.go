package sqlite

import (
	"context"

	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// DataSourceRepository implements persistence.DataSourceRepository using SQLite.
type DataSourceRepository struct {
	helper *QueryHelper
}

// NewDataSourceRepository creates a new SQLite data source repository.
func NewDataSourceRepository(pool *ConnectionPool) *DataSourceRepository {
	return &DataSourceRepository{helper: NewQueryHelper(pool)}
}

// SaveDataSource inserts or updates a data source.
func (r *DataSourceRepository) SaveDataSource(ctx context.Context, source persistence.DataSource) error {
	if source.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO data_sources (id, name, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description`,
		source.ID, source.Name, source.Description,
	)
	return mapError(err)
}

// GetDataSource retrieves a data source by ID.
func (r *DataSourceRepository) GetDataSource(ctx context.Context, id string) (persistence.DataSource, error) {
	var source persistence.DataSource
	err := r.helper.QueryRow(ctx, `SELECT id, name, description FROM data_sources WHERE id = ?`, id).
		Scan(&source.ID, &source.Name, &source.Description)
	if err != nil {
		return persistence.DataSource{}, mapError(err)
	}
	return source, nil
}
