// Package clock provides the ledger time source the wallet evaluates
// recovery windows against. Times are whole seconds since the Unix epoch.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current ledger time in seconds.
type Clock interface {
	Now() uint64
}

// System reads the wall clock.
type System struct{}

// Now returns the current Unix time in seconds.
func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a settable clock for tests and replays. It never goes backwards:
// Set with an earlier time is ignored.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

// NewManual returns a Manual clock starting at start.
func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t if t is not earlier than the current time.
func (m *Manual) Set(t uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// Advance moves the clock forward by d, truncated to whole seconds.
func (m *Manual) Advance(d time.Duration) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now += uint64(d / time.Second)
	}
	return m.now
}
