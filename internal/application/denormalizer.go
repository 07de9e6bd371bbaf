package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// Denormalizer keeps each resource's date_periods_hash and
// date_periods_as_text in step with its period trees.
type Denormalizer struct {
	store    Store
	cache    OpeningHoursCache
	notifier ChangeNotifier
	logger   *slog.Logger
}

// NewDenormalizer constructs a denormalizer. cache and notifier are optional.
func NewDenormalizer(store Store, cache OpeningHoursCache, notifier ChangeNotifier, logger *slog.Logger) *Denormalizer {
	return &Denormalizer{store: store, cache: cache, notifier: notifier, logger: defaultLogger(logger)}
}

func (d *Denormalizer) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, d.logger, "Denormalizer", operation, attrs...)
}

type scopeKey struct{}

// DeferredScope collects resources whose period trees changed so each is
// recomputed once when the scope ends.
type DeferredScope struct {
	d       *Denormalizer
	parent  *DeferredScope
	mu      sync.Mutex
	pending map[string]struct{}
	ended   bool
}

// BeginDeferred returns a context in which OnPeriodTreeChanged only records
// the resource. A scope begun inside another forwards to the outer one.
func (d *Denormalizer) BeginDeferred(ctx context.Context) (context.Context, *DeferredScope) {
	parent, _ := ctx.Value(scopeKey{}).(*DeferredScope)
	if parent != nil && parent.isEnded() {
		parent = nil
	}
	scope := &DeferredScope{d: d, parent: parent, pending: make(map[string]struct{})}
	return context.WithValue(ctx, scopeKey{}, scope), scope
}

func (s *DeferredScope) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *DeferredScope) add(resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrDeferredScope
	}
	s.pending[resourceID] = struct{}{}
	return nil
}

// Pending returns the resources recorded so far, sorted.
func (s *DeferredScope) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// End recomputes every recorded resource once. A nested scope hands its
// resources to the outer scope instead. Ending a scope twice fails with
// ErrDeferredScope.
func (s *DeferredScope) End(ctx context.Context) error {
	ids := s.Pending()
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrDeferredScope
	}
	s.ended = true
	s.mu.Unlock()

	if s.parent != nil {
		for _, id := range ids {
			if err := s.parent.add(id); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ids {
		// Resources removed inside the scope have nothing left to refresh.
		if _, err := s.d.recompute(ctx, id, true); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// WithinScope runs fn in a deferred scope and recomputes the recorded
// resources once fn has returned. Writers wrap their transaction in it so
// the cache is invalidated only after commit. When fn fails nothing is
// recomputed.
func (d *Denormalizer) WithinScope(ctx context.Context, fn func(ctx context.Context) error) error {
	if d == nil {
		return fn(ctx)
	}
	scopeCtx, scope := d.BeginDeferred(ctx)
	if err := fn(scopeCtx); err != nil {
		scope.discard()
		return err
	}
	return scope.End(ctx)
}

func (s *DeferredScope) discard() {
	s.mu.Lock()
	s.ended = true
	s.pending = nil
	s.mu.Unlock()
}

// OnPeriodTreeChanged must be called after any write to a period, group,
// span or rule of the resource. Inside a deferred scope it only records the
// resource; otherwise it recomputes immediately.
func (d *Denormalizer) OnPeriodTreeChanged(ctx context.Context, resourceID string) error {
	if d == nil {
		return nil
	}
	if scope, _ := ctx.Value(scopeKey{}).(*DeferredScope); scope != nil && !scope.isEnded() {
		return scope.add(resourceID)
	}
	_, err := d.recompute(ctx, resourceID, true)
	return err
}

// Recompute refreshes the resource's hash and text and reports whether the
// hash changed. Cached opening hours are dropped only when either changed.
func (d *Denormalizer) Recompute(ctx context.Context, resourceID string) (bool, error) {
	return d.recompute(ctx, resourceID, false)
}

// recompute with invalidate drops cached opening hours even when hash and
// text are unchanged, since span names and descriptions reach the output
// without being part of either.
func (d *Denormalizer) recompute(ctx context.Context, resourceID string, invalidate bool) (changed bool, err error) {
	if d == nil {
		return false, fmt.Errorf("Denormalizer is nil")
	}

	logger := d.loggerWith(ctx, "Recompute", "resource_id", resourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to recompute date periods", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	resource, err := d.store.GetResource(ctx, resourceID)
	if err != nil {
		return false, mapRepoError(err)
	}
	periods, err := d.store.ListPeriods(ctx, resourceID, persistence.PeriodFilter{})
	if err != nil {
		return false, mapRepoError(err)
	}

	live := toHoursPeriods(periods)
	hash := hours.DatePeriodsHash(live)
	text := hours.DatePeriodsText(live)
	if hash == resource.DatePeriodsHash && text == resource.DatePeriodsAsText {
		logger.DebugContext(ctx, "date periods unchanged")
		if invalidate {
			d.invalidate(ctx, logger, resourceID)
		}
		return false, nil
	}

	if err = d.store.UpdateDenormalized(ctx, resourceID, hash, text); err != nil {
		return false, mapRepoError(err)
	}
	changed = hash != resource.DatePeriodsHash
	logger.InfoContext(ctx, "date periods recomputed", "hash", hash, "hash_changed", changed)

	d.invalidate(ctx, logger, resourceID)
	if changed && d.notifier != nil {
		if nerr := d.notifier.DatePeriodsChanged(ctx, resourceID, hash); nerr != nil {
			logger.WarnContext(ctx, "failed to publish date periods change", "error", nerr)
		}
	}
	return changed, nil
}

func (d *Denormalizer) invalidate(ctx context.Context, logger *slog.Logger, resourceID string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Invalidate(ctx, resourceID); err != nil {
		logger.WarnContext(ctx, "failed to invalidate opening hours cache", "error", err)
	}
}

// RecomputeAll recomputes the given resources, or every resource when ids
// is empty, and returns how many hashes changed.
func (d *Denormalizer) RecomputeAll(ctx context.Context, ids ...string) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("Denormalizer is nil")
	}
	if len(ids) == 0 {
		resources, err := d.store.ListResources(ctx)
		if err != nil {
			return 0, mapRepoError(err)
		}
		for _, r := range resources {
			ids = append(ids, r.ID)
		}
	}

	changed := 0
	for _, id := range ids {
		ok, err := d.Recompute(ctx, id)
		if err != nil {
			return changed, fmt.Errorf("recompute %s: %w", id, err)
		}
		if ok {
			changed++
		}
	}
	d.loggerWith(ctx, "RecomputeAll").InfoContext(ctx, "recompute finished", "resources", len(ids), "changed", changed)
	return changed, nil
}
