package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Importer fetches batches from one external source.
type Importer interface {
	Name() string
	Fetch(ctx context.Context) ([]Batch, error)
}

// Registry holds the importers available to the CLI and the scheduler.
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// Register adds imp under its name.
func (r *Registry) Register(imp Importer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := imp.Name()
	if _, exists := r.importers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateImporter, name)
	}
	r.importers[name] = imp
	return nil
}

// Get returns the importer registered under name.
func (r *Registry) Get(name string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	imp, ok := r.importers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImporter, name)
	}
	return imp, nil
}

// Names lists the registered importers in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.importers))
	for name := range r.importers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
