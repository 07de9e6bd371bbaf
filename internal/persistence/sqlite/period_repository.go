package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// DatePeriodRepository implements persistence.DatePeriodRepository using SQLite.
type DatePeriodRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	now    func() time.Time
}

// NewDatePeriodRepository creates a new SQLite date period repository.
func NewDatePeriodRepository(pool *ConnectionPool) *DatePeriodRepository {
	return &DatePeriodRepository{pool: pool, helper: NewQueryHelper(pool), now: time.Now}
}

const periodColumns = `id, resource_id, name, description, start_date, end_date, resource_state, override, created_at, updated_at`

// SavePeriod inserts a period or replaces an existing one, tree included.
func (r *DatePeriodRepository) SavePeriod(ctx context.Context, period persistence.DatePeriod) error {
	if period.ID == "" || period.ResourceID == "" {
		return persistence.ErrConstraintViolation
	}
	now := r.now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	if period.ResourceState == "" {
		period.ResourceState = hours.StateUndefined
	}

	return r.pool.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO date_periods (`+periodColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				resource_id = excluded.resource_id,
				name = excluded.name,
				description = excluded.description,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				resource_state = excluded.resource_state,
				override = excluded.override,
				is_removed = 0,
				updated_at = excluded.updated_at`,
			period.ID,
			period.ResourceID,
			period.Name,
			period.Description,
			nullDate(period.StartDate),
			nullDate(period.EndDate),
			string(period.ResourceState),
			period.Override,
			formatTimestamp(period.CreatedAt),
			formatTimestamp(period.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		if err := r.deleteTree(ctx, period.ID); err != nil {
			return err
		}
		if err := r.insertTree(ctx, period.DatePeriod); err != nil {
			return err
		}
		return r.replaceOrigins(ctx, period.ID, period.Origins)
	})
}

// GetPeriod retrieves a period with its tree.
func (r *DatePeriodRepository) GetPeriod(ctx context.Context, id string) (persistence.DatePeriod, error) {
	periods, err := r.list(ctx, `SELECT `+periodColumns+` FROM date_periods WHERE id = ? AND is_removed = 0`, id)
	if err != nil {
		return persistence.DatePeriod{}, err
	}
	if len(periods) == 0 {
		return persistence.DatePeriod{}, persistence.ErrNotFound
	}
	return periods[0], nil
}

// GetPeriodByOrigin retrieves the period imported under origin.
func (r *DatePeriodRepository) GetPeriodByOrigin(ctx context.Context, origin persistence.Origin) (persistence.DatePeriod, error) {
	var id string
	err := r.helper.QueryRow(ctx,
		`SELECT period_id FROM period_origins WHERE data_source_id = ? AND origin_id = ?`,
		origin.DataSourceID, origin.OriginID,
	).Scan(&id)
	if err != nil {
		return persistence.DatePeriod{}, mapError(err)
	}
	return r.GetPeriod(ctx, id)
}

// ListPeriods returns the resource's periods overlapping filter, ordered by
// start date with unbounded starts first.
func (r *DatePeriodRepository) ListPeriods(ctx context.Context, resourceID string, filter persistence.PeriodFilter) ([]persistence.DatePeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM date_periods WHERE resource_id = ? AND is_removed = 0`
	args := []any{resourceID}
	if filter.StartDate != nil {
		query += ` AND (end_date IS NULL OR end_date >= ?)`
		args = append(args, filter.StartDate.String())
	}
	if filter.EndDate != nil {
		query += ` AND (start_date IS NULL OR start_date <= ?)`
		args = append(args, filter.EndDate.String())
	}
	query += ` ORDER BY start_date IS NOT NULL, start_date, id`
	return r.list(ctx, query, args...)
}

// ListPeriodsByDataSource returns periods with an origin in the data source.
func (r *DatePeriodRepository) ListPeriodsByDataSource(ctx context.Context, dataSourceID string) ([]persistence.DatePeriod, error) {
	return r.list(ctx, `
		SELECT `+periodColumns+` FROM date_periods
		WHERE is_removed = 0 AND id IN (SELECT period_id FROM period_origins WHERE data_source_id = ?)
		ORDER BY resource_id, id`, dataSourceID)
}

// DeletePeriod soft-deletes a period.
func (r *DatePeriodRepository) DeletePeriod(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE date_periods SET is_removed = 1, updated_at = ? WHERE id = ? AND is_removed = 0`,
		formatTimestamp(r.now()), id)
	return requireRow(result, err)
}

func (r *DatePeriodRepository) list(ctx context.Context, query string, args ...any) ([]persistence.DatePeriod, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	var periods []persistence.DatePeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err)
	}
	rows.Close()

	if len(periods) == 0 {
		return periods, nil
	}
	if err := r.loadTrees(ctx, periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func scanPeriod(row rowScanner) (persistence.DatePeriod, error) {
	var (
		p                    persistence.DatePeriod
		startDate, endDate   sql.NullString
		state                string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.ID,
		&p.ResourceID,
		&p.Name,
		&p.Description,
		&startDate,
		&endDate,
		&state,
		&p.Override,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.DatePeriod{}, mapError(err)
	}
	if p.StartDate, err = parseNullDate(startDate); err != nil {
		return persistence.DatePeriod{}, err
	}
	if p.EndDate, err = parseNullDate(endDate); err != nil {
		return persistence.DatePeriod{}, err
	}
	p.ResourceState = hours.State(state)
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return p, nil
}

// loadTrees fills groups, spans, rules and origins of the given periods.
func (r *DatePeriodRepository) loadTrees(ctx context.Context, periods []persistence.DatePeriod) error {
	ids := make([]string, len(periods))
	index := make(map[string]int, len(periods))
	for i, p := range periods {
		ids[i] = p.ID
		index[p.ID] = i
	}
	in := placeholders(len(ids))

	groups := make(map[string]*hours.TimeSpanGroup)
	var groupOrder []string
	rows, err := r.helper.Query(ctx,
		`SELECT id, period_id FROM time_span_groups WHERE period_id IN (`+in+`) ORDER BY period_id, position, id`,
		anyArgs(ids)...)
	if err != nil {
		return mapError(err)
	}
	for rows.Next() {
		var g hours.TimeSpanGroup
		if err := rows.Scan(&g.ID, &g.PeriodID); err != nil {
			rows.Close()
			return mapError(err)
		}
		groups[g.ID] = &g
		groupOrder = append(groupOrder, g.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return mapError(err)
	}
	rows.Close()

	if len(groupOrder) > 0 {
		if err := r.loadSpans(ctx, groups, groupOrder); err != nil {
			return err
		}
		if err := r.loadRules(ctx, groups, groupOrder); err != nil {
			return err
		}
	}
	for _, id := range groupOrder {
		g := groups[id]
		p := &periods[index[g.PeriodID]]
		p.Groups = append(p.Groups, *g)
	}

	rows, err = r.helper.Query(ctx,
		`SELECT period_id, data_source_id, origin_id FROM period_origins WHERE period_id IN (`+in+`) ORDER BY data_source_id, origin_id`,
		anyArgs(ids)...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			periodID string
			o        persistence.Origin
		)
		if err := rows.Scan(&periodID, &o.DataSourceID, &o.OriginID); err != nil {
			return mapError(err)
		}
		p := &periods[index[periodID]]
		p.Origins = append(p.Origins, o)
	}
	return mapError(rows.Err())
}

func (r *DatePeriodRepository) loadSpans(ctx context.Context, groups map[string]*hours.TimeSpanGroup, groupIDs []string) error {
	rows, err := r.helper.Query(ctx, `
		SELECT id, group_id, name, description, start_time, end_time, end_time_on_next_day, full_day, weekdays, resource_state
		FROM time_spans WHERE group_id IN (`+placeholders(len(groupIDs))+`) ORDER BY group_id, position, id`,
		anyArgs(groupIDs)...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			span               hours.TimeSpan
			startTime, endTime sql.NullString
			weekdays, state    string
		)
		if err := rows.Scan(
			&span.ID,
			&span.GroupID,
			&span.Name,
			&span.Description,
			&startTime,
			&endTime,
			&span.EndTimeOnNextDay,
			&span.FullDay,
			&weekdays,
			&state,
		); err != nil {
			return mapError(err)
		}
		if span.StartTime, err = parseNullTime(startTime); err != nil {
			return err
		}
		if span.EndTime, err = parseNullTime(endTime); err != nil {
			return err
		}
		if span.Weekdays, err = decodeList[hours.Weekday](weekdays); err != nil {
			return err
		}
		span.ResourceState = hours.State(state)
		g := groups[span.GroupID]
		g.TimeSpans = append(g.TimeSpans, span)
	}
	return mapError(rows.Err())
}

func (r *DatePeriodRepository) loadRules(ctx context.Context, groups map[string]*hours.TimeSpanGroup, groupIDs []string) error {
	rows, err := r.helper.Query(ctx, `
		SELECT id, group_id, name, description, context, subject, start, frequency_ordinal, frequency_modifier
		FROM rules WHERE group_id IN (`+placeholders(len(groupIDs))+`) ORDER BY group_id, position, id`,
		anyArgs(groupIDs)...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rule                           recurrence.Rule
			ruleContext, subject, modifier string
			start, ordinal                 sql.NullInt64
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.GroupID,
			&rule.Name,
			&rule.Description,
			&ruleContext,
			&subject,
			&start,
			&ordinal,
			&modifier,
		); err != nil {
			return mapError(err)
		}
		rule.Context = recurrence.Context(ruleContext)
		rule.Subject = recurrence.Subject(subject)
		rule.Start = intFromNull(start)
		rule.FrequencyOrdinal = intFromNull(ordinal)
		rule.FrequencyModifier = recurrence.Modifier(modifier)
		g := groups[rule.GroupID]
		g.Rules = append(g.Rules, rule)
	}
	return mapError(rows.Err())
}

func (r *DatePeriodRepository) deleteTree(ctx context.Context, periodID string) error {
	for _, stmt := range []string{
		`DELETE FROM rules WHERE group_id IN (SELECT id FROM time_span_groups WHERE period_id = ?)`,
		`DELETE FROM time_spans WHERE group_id IN (SELECT id FROM time_span_groups WHERE period_id = ?)`,
		`DELETE FROM time_span_groups WHERE period_id = ?`,
	} {
		if _, err := r.helper.Exec(ctx, stmt, periodID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *DatePeriodRepository) insertTree(ctx context.Context, period hours.DatePeriod) error {
	for gi, g := range period.Groups {
		if g.ID == "" {
			return persistence.ErrConstraintViolation
		}
		if _, err := r.helper.Exec(ctx,
			`INSERT INTO time_span_groups (id, period_id, position) VALUES (?, ?, ?)`,
			g.ID, period.ID, gi,
		); err != nil {
			return mapError(err)
		}

		for si, span := range g.TimeSpans {
			if span.ID == "" {
				return persistence.ErrConstraintViolation
			}
			weekdays, err := encodeList(span.Weekdays)
			if err != nil {
				return err
			}
			state := span.ResourceState
			if state == "" {
				state = hours.StateUndefined
			}
			if _, err := r.helper.Exec(ctx, `
				INSERT INTO time_spans (id, group_id, position, name, description, start_time, end_time,
					end_time_on_next_day, full_day, weekdays, resource_state)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				span.ID,
				g.ID,
				si,
				span.Name,
				span.Description,
				nullTime(span.StartTime),
				nullTime(span.EndTime),
				span.EndTimeOnNextDay,
				span.FullDay,
				weekdays,
				string(state),
			); err != nil {
				return mapError(err)
			}
		}

		for ri, rule := range g.Rules {
			if rule.ID == "" {
				return persistence.ErrConstraintViolation
			}
			if _, err := r.helper.Exec(ctx, `
				INSERT INTO rules (id, group_id, position, name, description, context, subject, start,
					frequency_ordinal, frequency_modifier)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rule.ID,
				g.ID,
				ri,
				rule.Name,
				rule.Description,
				string(rule.Context),
				string(rule.Subject),
				nullInt(rule.Start),
				nullInt(rule.FrequencyOrdinal),
				string(rule.FrequencyModifier),
			); err != nil {
				return mapError(err)
			}
		}
	}
	return nil
}

func (r *DatePeriodRepository) replaceOrigins(ctx context.Context, id string, origins []persistence.Origin) error {
	if _, err := r.helper.Exec(ctx, `DELETE FROM period_origins WHERE period_id = ?`, id); err != nil {
		return mapError(err)
	}
	for _, o := range origins {
		if _, err := r.helper.Exec(ctx,
			`INSERT INTO period_origins (data_source_id, origin_id, period_id) VALUES (?, ?, ?)
			ON CONFLICT(data_source_id, origin_id) DO UPDATE SET period_id = excluded.period_id`,
			o.DataSourceID, o.OriginID, id,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}
