package importer

import (
	"context"
	"fmt"
	"sort"
)

const (
	deletionGuardMinimum  = 5
	deletionGuardFraction = 0.2
)

// Syncher tracks the stored objects of one kind so that those missing from
// an import run can be deleted when it finishes.
type Syncher struct {
	kind     string
	found    map[string]bool
	remove   func(ctx context.Context, id string) error
	finished bool
}

// NewSyncher tracks existing and removes leftovers with remove.
func NewSyncher(kind string, existing []string, remove func(ctx context.Context, id string) error) *Syncher {
	found := make(map[string]bool, len(existing))
	for _, id := range existing {
		found[id] = false
	}
	return &Syncher{kind: kind, found: found, remove: remove}
}

// Mark records that id is still present in the source. New objects are
// tracked too. Marking an object twice means the source yields it twice.
func (s *Syncher) Mark(id string) error {
	if s.finished {
		return ErrSyncherFinished
	}
	if s.found[id] {
		return fmt.Errorf("%w: %s %s", ErrAlreadyMarked, s.kind, id)
	}
	s.found[id] = true
	return nil
}

// Tracked reports how many objects the syncher knows about.
func (s *Syncher) Tracked() int {
	return len(s.found)
}

// Finish deletes every unmarked object and returns their IDs. Deleting more
// than five objects that are also over a fifth of the tracked set is
// refused unless force is set.
func (s *Syncher) Finish(ctx context.Context, force bool) ([]string, error) {
	if s.finished {
		return nil, ErrSyncherFinished
	}
	s.finished = true

	var stale []string
	for id, found := range s.found {
		if !found {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)

	if !force && len(stale) > deletionGuardMinimum && float64(len(stale)) > float64(len(s.found))*deletionGuardFraction {
		return nil, fmt.Errorf("%w: %d of %d %s objects", ErrTooManyDeletions, len(stale), len(s.found), s.kind)
	}
	for _, id := range stale {
		if err := s.remove(ctx, id); err != nil {
			return nil, fmt.Errorf("importer: delete %s %s: %w", s.kind, id, err)
		}
	}
	return stale, nil
}
