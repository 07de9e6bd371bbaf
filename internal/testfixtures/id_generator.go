package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator hands out "prefix-1", "prefix-2", ... in place of random
// UUIDs. All services built by one factory share a sequence, so IDs reflect
// creation order across resources, periods, groups, spans and rules.
type IDGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewIDGenerator defaults prefix to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return g.format(g.n.Add(1))
}

// Last returns the most recently issued ID, or "" before the first.
func (g *IDGenerator) Last() string {
	n := g.n.Load()
	if n == 0 {
		return ""
	}
	return g.format(n)
}

// NextFunc adapts the generator to the services' newID parameter.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

func (g *IDGenerator) format(n uint64) string {
	return g.prefix + "-" + strconv.FormatUint(n, 10)
}
