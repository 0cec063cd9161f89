package core

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator mints timestamp-derived entity ids, unique within a process.
// Ids are decimal Unix-millisecond stamps; a collision within the same
// millisecond bumps the stamp forward so catch-up expansion can mint many
// ids in one pass without clashing.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorAt uses the given clock, for tests.
func NewIDGeneratorAt(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns a fresh id, strictly greater than any previous one.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
