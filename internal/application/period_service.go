package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// PeriodService writes date periods with their full group, span and rule
// trees. Every write happens in one transaction and triggers a recompute of
// the owning resource's denormalized fields.
type PeriodService struct {
	store        Store
	denormalizer *Denormalizer
	idGenerator  func() string
	logger       *slog.Logger
}

// NewPeriodService constructs a period service. A nil idGenerator uses random UUIDs.
func NewPeriodService(store Store, denormalizer *Denormalizer, idGenerator func() string, logger *slog.Logger) *PeriodService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	return &PeriodService{store: store, denormalizer: denormalizer, idGenerator: idGenerator, logger: defaultLogger(logger)}
}

func (s *PeriodService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PeriodService", operation, attrs...)
}

// SavePeriod validates and stores a period. Missing identifiers at any
// level are generated; an existing period with the same ID is replaced.
func (s *PeriodService) SavePeriod(ctx context.Context, period persistence.DatePeriod) (saved persistence.DatePeriod, err error) {
	if s == nil {
		err = fmt.Errorf("PeriodService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SavePeriod", "resource_id", period.ResourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save date period", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("period_id", saved.ID).InfoContext(ctx, "date period saved")
	}()

	normalized, vErr := s.normalizePeriod(period)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.denormalizer.WithinScope(ctx, func(ctx context.Context) error {
		return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.savePeriod(ctx, normalized)
		})
	})
	if err != nil {
		return
	}

	saved, err = s.store.GetPeriod(ctx, normalized.ID)
	err = mapRepoError(err)
	return
}

func (s *PeriodService) savePeriod(ctx context.Context, normalized persistence.DatePeriod) error {
	if _, err := s.store.GetResource(ctx, normalized.ResourceID); err != nil {
		return mapRepoError(err)
	}

	previousOwner := ""
	existing, err := s.store.GetPeriod(ctx, normalized.ID)
	switch {
	case err == nil:
		previousOwner = existing.ResourceID
		normalized.CreatedAt = existing.CreatedAt
	case !errors.Is(err, persistence.ErrNotFound):
		return mapRepoError(err)
	}

	if err := s.store.SavePeriod(ctx, normalized); err != nil {
		return mapRepoError(err)
	}
	if previousOwner != "" && previousOwner != normalized.ResourceID {
		if err := s.denormalizer.OnPeriodTreeChanged(ctx, previousOwner); err != nil {
			return err
		}
	}
	return s.denormalizer.OnPeriodTreeChanged(ctx, normalized.ResourceID)
}

// DeletePeriod soft-deletes a period.
func (s *PeriodService) DeletePeriod(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("PeriodService is nil")
	}
	logger := s.loggerWith(ctx, "DeletePeriod", "period_id", id)

	err := s.denormalizer.WithinScope(ctx, func(ctx context.Context) error {
		return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
			period, err := s.store.GetPeriod(ctx, id)
			if err != nil {
				return mapRepoError(err)
			}
			if err := s.store.DeletePeriod(ctx, id); err != nil {
				return mapRepoError(err)
			}
			return s.denormalizer.OnPeriodTreeChanged(ctx, period.ResourceID)
		})
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete date period", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "date period deleted")
	return nil
}

// GetPeriod returns a live period.
func (s *PeriodService) GetPeriod(ctx context.Context, id string) (persistence.DatePeriod, error) {
	if s == nil {
		return persistence.DatePeriod{}, fmt.Errorf("PeriodService is nil")
	}
	period, err := s.store.GetPeriod(ctx, id)
	return period, mapRepoError(err)
}

// ListPeriods returns the live periods of a resource.
func (s *PeriodService) ListPeriods(ctx context.Context, resourceID string) ([]persistence.DatePeriod, error) {
	if s == nil {
		return nil, fmt.Errorf("PeriodService is nil")
	}
	if _, err := s.store.GetResource(ctx, resourceID); err != nil {
		return nil, mapRepoError(err)
	}
	periods, err := s.store.ListPeriods(ctx, resourceID, persistence.PeriodFilter{})
	return periods, mapRepoError(err)
}

// CopyPeriodsToResource deep-copies periods of source to each target. With
// no periodIDs every live period is copied. With replace, the targets'
// previous periods are removed once the copies exist. The operation is all
// or nothing.
func (s *PeriodService) CopyPeriodsToResource(ctx context.Context, sourceID string, targetIDs, periodIDs []string, replace bool) (err error) {
	if s == nil {
		return fmt.Errorf("PeriodService is nil")
	}

	logger := s.loggerWith(ctx, "CopyPeriodsToResource",
		"resource_id", sourceID,
		"targets", targetIDs,
		"replace", replace,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to copy date periods", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "date periods copied")
	}()

	if len(targetIDs) == 0 {
		vErr := &ValidationError{}
		vErr.add("target_resources", "at least one target resource is required")
		return vErr
	}
	for _, target := range targetIDs {
		if target == sourceID {
			return ErrCopyToSelf
		}
	}

	return s.denormalizer.WithinScope(ctx, func(ctx context.Context) error {
		return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.copyAll(ctx, sourceID, targetIDs, periodIDs, replace)
		})
	})
}

func (s *PeriodService) copyAll(ctx context.Context, sourceID string, targetIDs, periodIDs []string, replace bool) error {
	if _, err := s.store.GetResource(ctx, sourceID); err != nil {
		return mapRepoError(err)
	}
	periods, err := s.store.ListPeriods(ctx, sourceID, persistence.PeriodFilter{})
	if err != nil {
		return mapRepoError(err)
	}
	selected, err := selectPeriods(periods, periodIDs)
	if err != nil {
		return err
	}

	for _, target := range targetIDs {
		if err := s.copyInto(ctx, target, selected, replace); err != nil {
			return err
		}
	}
	return nil
}

func (s *PeriodService) copyInto(ctx context.Context, targetID string, periods []persistence.DatePeriod, replace bool) error {
	if _, err := s.store.GetResource(ctx, targetID); err != nil {
		return mapRepoError(err)
	}

	var previous []persistence.DatePeriod
	if replace {
		var err error
		if previous, err = s.store.ListPeriods(ctx, targetID, persistence.PeriodFilter{}); err != nil {
			return mapRepoError(err)
		}
	}

	for _, p := range periods {
		copied := persistence.DatePeriod{DatePeriod: s.cloneTree(p.DatePeriod)}
		copied.ResourceID = targetID
		if err := s.store.SavePeriod(ctx, copied); err != nil {
			return mapRepoError(err)
		}
	}
	for _, p := range previous {
		if err := s.store.DeletePeriod(ctx, p.ID); err != nil {
			return mapRepoError(err)
		}
	}
	return s.denormalizer.OnPeriodTreeChanged(ctx, targetID)
}

func selectPeriods(periods []persistence.DatePeriod, ids []string) ([]persistence.DatePeriod, error) {
	if len(ids) == 0 {
		return periods, nil
	}
	byID := make(map[string]persistence.DatePeriod, len(periods))
	for _, p := range periods {
		byID[p.ID] = p
	}
	selected := make([]persistence.DatePeriod, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("date period %s of the source resource: %w", id, ErrNotFound)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// cloneTree copies a period tree under fresh identifiers.
func (s *PeriodService) cloneTree(p hours.DatePeriod) hours.DatePeriod {
	out := p
	out.ID = s.idGenerator()
	out.Groups = make([]hours.TimeSpanGroup, len(p.Groups))
	for i, g := range p.Groups {
		group := hours.TimeSpanGroup{ID: s.idGenerator(), PeriodID: out.ID}
		for _, span := range g.TimeSpans {
			span.ID = s.idGenerator()
			span.GroupID = group.ID
			span.Weekdays = append([]hours.Weekday(nil), span.Weekdays...)
			group.TimeSpans = append(group.TimeSpans, span)
		}
		for _, rule := range g.Rules {
			rule.ID = s.idGenerator()
			rule.GroupID = group.ID
			group.Rules = append(group.Rules, rule)
		}
		out.Groups[i] = group
	}
	return out
}

// normalizePeriod validates a period tree, fills defaults and generates
// missing identifiers.
func (s *PeriodService) normalizePeriod(p persistence.DatePeriod) (persistence.DatePeriod, *ValidationError) {
	vErr := &ValidationError{}
	out := p
	out.Name = strings.TrimSpace(p.Name)
	out.Description = strings.TrimSpace(p.Description)

	if strings.TrimSpace(p.ResourceID) == "" {
		vErr.add("resource", "resource is required")
	}
	if out.ResourceState == "" {
		out.ResourceState = hours.StateUndefined
	}
	if !out.ResourceState.Valid() {
		vErr.add("resource_state", fmt.Sprintf("unknown state %q", out.ResourceState))
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		vErr.add("end_date", "end date must not be before start date")
	}
	if out.ID == "" {
		out.ID = s.idGenerator()
	}

	bounds := out.Bounds()
	out.Groups = make([]hours.TimeSpanGroup, len(p.Groups))
	for gi, g := range p.Groups {
		group := g
		if group.ID == "" {
			group.ID = s.idGenerator()
		}
		group.PeriodID = out.ID

		group.TimeSpans = make([]hours.TimeSpan, len(g.TimeSpans))
		for si, span := range g.TimeSpans {
			vErr.merge(validateTimeSpan(fmt.Sprintf("time_span_groups[%d].time_spans[%d]", gi, si), &span))
			if span.ID == "" {
				span.ID = s.idGenerator()
			}
			span.GroupID = group.ID
			group.TimeSpans[si] = span
		}

		group.Rules = make([]recurrence.Rule, len(g.Rules))
		for ri, rule := range g.Rules {
			normalized, err := rule.Validate(bounds)
			if err != nil {
				field := fmt.Sprintf("time_span_groups[%d].rules[%d]", gi, ri)
				var ruleErr *recurrence.RuleError
				if errors.As(err, &ruleErr) {
					field += "." + ruleErr.Field
				}
				vErr.add(field, err.Error())
			}
			if normalized.ID == "" {
				normalized.ID = s.idGenerator()
			}
			normalized.GroupID = group.ID
			group.Rules[ri] = normalized
		}
		out.Groups[gi] = group
	}
	return out, vErr
}

func validateTimeSpan(prefix string, span *hours.TimeSpan) *ValidationError {
	vErr := &ValidationError{}
	span.Name = strings.TrimSpace(span.Name)
	if span.ResourceState == "" {
		span.ResourceState = hours.StateUndefined
	}
	if !span.ResourceState.Valid() {
		vErr.add(prefix+".resource_state", fmt.Sprintf("unknown state %q", span.ResourceState))
	}
	for _, w := range span.Weekdays {
		if !w.Valid() {
			vErr.add(prefix+".weekdays", fmt.Sprintf("unknown weekday %d", w))
			break
		}
	}
	return vErr
}
