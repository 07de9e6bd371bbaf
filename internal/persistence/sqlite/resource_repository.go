package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	now    func() time.Time
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool, helper: NewQueryHelper(pool), now: time.Now}
}

const resourceColumns = `id, name, description, address, resource_type, organization, timezone, is_public,
	ancestry_is_public, ancestry_data_sources, ancestry_organizations,
	date_periods_hash, date_periods_as_text, created_at, updated_at`

// CreateResource inserts a resource together with its origins.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = r.now().UTC()
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = resource.CreatedAt
	}
	if resource.ResourceType == "" {
		resource.ResourceType = hours.ResourceTypeUnit
	}
	if resource.Timezone == "" {
		resource.Timezone = "Europe/Helsinki"
	}

	dataSources, err := encodeList(resource.Ancestry.DataSources)
	if err != nil {
		return err
	}
	organizations, err := encodeList(resource.Ancestry.Organizations)
	if err != nil {
		return err
	}

	return r.pool.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO resources (`+resourceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resource.ID,
			resource.Name,
			resource.Description,
			resource.Address,
			string(resource.ResourceType),
			nullString(resource.Organization),
			resource.Timezone,
			resource.IsPublic,
			nullBool(resource.Ancestry.IsPublic),
			dataSources,
			organizations,
			resource.DatePeriodsHash,
			resource.DatePeriodsAsText,
			formatTimestamp(resource.CreatedAt),
			formatTimestamp(resource.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return r.replaceOrigins(ctx, resource.ID, resource.Origins)
	})
}

// UpdateResource updates the editable fields and origins of a resource.
// Derived fields are written by UpdateDenormalized and UpdateAncestry.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	resource.UpdatedAt = r.now().UTC()

	return r.pool.WithinTransaction(ctx, func(ctx context.Context) error {
		result, err := r.helper.Exec(ctx, `
			UPDATE resources
			SET name = ?, description = ?, address = ?, resource_type = ?, organization = ?,
				timezone = ?, is_public = ?, updated_at = ?
			WHERE id = ? AND is_removed = 0`,
			resource.Name,
			resource.Description,
			resource.Address,
			string(resource.ResourceType),
			nullString(resource.Organization),
			resource.Timezone,
			resource.IsPublic,
			formatTimestamp(resource.UpdatedAt),
			resource.ID,
		)
		if err := requireRow(result, err); err != nil {
			return err
		}
		return r.replaceOrigins(ctx, resource.ID, resource.Origins)
	})
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	resource, err := scanResource(r.helper.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ? AND is_removed = 0`, id))
	if err != nil {
		return persistence.Resource{}, err
	}
	if resource.Origins, err = r.origins(ctx, id); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}

// GetResourceByOrigin retrieves the resource imported under origin.
func (r *ResourceRepository) GetResourceByOrigin(ctx context.Context, origin persistence.Origin) (persistence.Resource, error) {
	var id string
	err := r.helper.QueryRow(ctx,
		`SELECT resource_id FROM resource_origins WHERE data_source_id = ? AND origin_id = ?`,
		origin.DataSourceID, origin.OriginID,
	).Scan(&id)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}
	return r.GetResource(ctx, id)
}

// ListResources returns all resources ordered by ID.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	return r.list(ctx, `SELECT `+resourceColumns+` FROM resources WHERE is_removed = 0 ORDER BY id`)
}

// ListResourcesByDataSource returns resources with an origin in the data source.
func (r *ResourceRepository) ListResourcesByDataSource(ctx context.Context, dataSourceID string) ([]persistence.Resource, error) {
	return r.list(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE is_removed = 0 AND id IN (SELECT resource_id FROM resource_origins WHERE data_source_id = ?)
		ORDER BY id`, dataSourceID)
}

// DeleteResource soft-deletes a resource and drops its hierarchy edges.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	return r.pool.WithinTransaction(ctx, func(ctx context.Context) error {
		result, err := r.helper.Exec(ctx,
			`UPDATE resources SET is_removed = 1, updated_at = ? WHERE id = ? AND is_removed = 0`,
			formatTimestamp(r.now()), id)
		if err := requireRow(result, err); err != nil {
			return err
		}
		_, err = r.helper.Exec(ctx, `DELETE FROM resource_parents WHERE parent_id = ? OR child_id = ?`, id, id)
		return mapError(err)
	})
}

// UpdateDenormalized stores the date periods hash and text of a resource.
func (r *ResourceRepository) UpdateDenormalized(ctx context.Context, id, hash, text string) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE resources SET date_periods_hash = ?, date_periods_as_text = ? WHERE id = ? AND is_removed = 0`,
		hash, text, id)
	return requireRow(result, err)
}

// UpdateAncestry stores the fields a resource derives from its ancestors.
func (r *ResourceRepository) UpdateAncestry(ctx context.Context, id string, ancestry persistence.Ancestry) error {
	dataSources, err := encodeList(ancestry.DataSources)
	if err != nil {
		return err
	}
	organizations, err := encodeList(ancestry.Organizations)
	if err != nil {
		return err
	}
	result, err := r.helper.Exec(ctx, `
		UPDATE resources
		SET ancestry_is_public = ?, ancestry_data_sources = ?, ancestry_organizations = ?
		WHERE id = ? AND is_removed = 0`,
		nullBool(ancestry.IsPublic), dataSources, organizations, id)
	return requireRow(result, err)
}

// AddChild links childID under parentID.
func (r *ResourceRepository) AddChild(ctx context.Context, parentID, childID string) error {
	if parentID == childID {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `INSERT INTO resource_parents (parent_id, child_id) VALUES (?, ?)`, parentID, childID)
	return mapError(err)
}

// RemoveChild unlinks childID from parentID.
func (r *ResourceRepository) RemoveChild(ctx context.Context, parentID, childID string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM resource_parents WHERE parent_id = ? AND child_id = ?`, parentID, childID)
	return requireRow(result, err)
}

// ListParentIDs returns the IDs of the resource's parents.
func (r *ResourceRepository) ListParentIDs(ctx context.Context, id string) ([]string, error) {
	return r.ids(ctx, `
		SELECT p.parent_id FROM resource_parents p JOIN resources r ON r.id = p.parent_id
		WHERE p.child_id = ? AND r.is_removed = 0 ORDER BY p.parent_id`, id)
}

// ListChildIDs returns the IDs of the resource's children.
func (r *ResourceRepository) ListChildIDs(ctx context.Context, id string) ([]string, error) {
	return r.ids(ctx, `
		SELECT p.child_id FROM resource_parents p JOIN resources r ON r.id = p.child_id
		WHERE p.parent_id = ? AND r.is_removed = 0 ORDER BY p.child_id`, id)
}

func (r *ResourceRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Resource, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err)
	}
	rows.Close()

	for i := range resources {
		if resources[i].Origins, err = r.origins(ctx, resources[i].ID); err != nil {
			return nil, err
		}
	}
	return resources, nil
}

func (r *ResourceRepository) origins(ctx context.Context, id string) ([]persistence.Origin, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT data_source_id, origin_id FROM resource_origins WHERE resource_id = ? ORDER BY data_source_id, origin_id`, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var origins []persistence.Origin
	for rows.Next() {
		var o persistence.Origin
		if err := rows.Scan(&o.DataSourceID, &o.OriginID); err != nil {
			return nil, mapError(err)
		}
		origins = append(origins, o)
	}
	return origins, mapError(rows.Err())
}

func (r *ResourceRepository) replaceOrigins(ctx context.Context, id string, origins []persistence.Origin) error {
	if _, err := r.helper.Exec(ctx, `DELETE FROM resource_origins WHERE resource_id = ?`, id); err != nil {
		return mapError(err)
	}
	for _, o := range origins {
		if _, err := r.helper.Exec(ctx,
			`INSERT INTO resource_origins (data_source_id, origin_id, resource_id) VALUES (?, ?, ?)
			ON CONFLICT(data_source_id, origin_id) DO UPDATE SET resource_id = excluded.resource_id`,
			o.DataSourceID, o.OriginID, id,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *ResourceRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource                   persistence.Resource
		resourceType               string
		organization               sql.NullString
		ancestryPublic             sql.NullBool
		dataSources, organizations string
		createdAt, updatedAt       string
	)
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Description,
		&resource.Address,
		&resourceType,
		&organization,
		&resource.Timezone,
		&resource.IsPublic,
		&ancestryPublic,
		&dataSources,
		&organizations,
		&resource.DatePeriodsHash,
		&resource.DatePeriodsAsText,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}

	resource.ResourceType = hours.ResourceType(resourceType)
	resource.Organization = organization.String
	resource.Ancestry.IsPublic = boolFromNull(ancestryPublic)
	if resource.Ancestry.DataSources, err = decodeList[string](dataSources); err != nil {
		return persistence.Resource{}, err
	}
	if resource.Ancestry.Organizations, err = decodeList[string](organizations); err != nil {
		return persistence.Resource{}, err
	}
	resource.CreatedAt = parseTimestamp(createdAt)
	resource.UpdatedAt = parseTimestamp(updatedAt)
	return resource, nil
}

func requireRow(result sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
