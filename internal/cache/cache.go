// Package cache stores resolved opening hours keyed by resource and date
// range. Entries of a resource are dropped together when its periods change.
package cache

import (
	"strings"

	"github.com/golang-sql/civil"
)

// DefaultSize bounds the in-memory cache.
const DefaultSize = 1024

const keySeparator = "|"

func rangeField(start, end civil.Date) string {
	return start.String() + keySeparator + end.String()
}

func memoryKey(resourceID string, start, end civil.Date) string {
	return resourceID + keySeparator + rangeField(start, end)
}

func belongsTo(key, resourceID string) bool {
	return strings.HasPrefix(key, resourceID+keySeparator)
}
