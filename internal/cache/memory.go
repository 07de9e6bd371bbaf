package cache

import (
	"context"
	"time"

	"github.com/golang-sql/civil"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
)

// Memory is a size bounded in-process cache whose entries expire after a
// fixed TTL.
type Memory struct {
	entries *expirable.LRU[string, hours.OpeningHours]
}

// NewMemory creates a cache holding at most size entries for ttl each. A
// non-positive size uses DefaultSize; a zero ttl never expires entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{entries: expirable.NewLRU[string, hours.OpeningHours](size, nil, ttl)}
}

// Get returns the cached hours of the range.
func (m *Memory) Get(_ context.Context, resourceID string, start, end civil.Date) (hours.OpeningHours, bool, error) {
	days, ok := m.entries.Get(memoryKey(resourceID, start, end))
	return days, ok, nil
}

// Set stores the hours of the range.
func (m *Memory) Set(_ context.Context, resourceID string, start, end civil.Date, days hours.OpeningHours) error {
	m.entries.Add(memoryKey(resourceID, start, end), days)
	return nil
}

// Invalidate drops every cached range of the resource.
func (m *Memory) Invalidate(_ context.Context, resourceID string) error {
	for _, key := range m.entries.Keys() {
		if belongsTo(key, resourceID) {
			m.entries.Remove(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}
