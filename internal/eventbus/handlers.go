package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/steveyegge/rwallet/internal/debug"
)

// Recorder keeps every event it sees, in order. The CLI uses it to report
// emitted events in --json output; tests use it to assert emissions.
// Priority 0 (runs first).
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (h *Recorder) ID() string           { return "recorder" }
func (h *Recorder) Handles() []EventType { return AllEventTypes }
func (h *Recorder) Priority() int        { return 0 }

func (h *Recorder) Handle(_ context.Context, event *Event, _ *Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *event)
	return nil
}

// Events returns a copy of the recorded events.
func (h *Recorder) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Types returns the recorded event types, in order.
func (h *Recorder) Types() []EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]EventType, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

// Reset drops recorded events.
func (h *Recorder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

// AuditHandler appends each event to the wallet directory's events.log.
// Priority 50.
type AuditHandler struct {
	Dir string
}

func (h *AuditHandler) ID() string           { return "audit" }
func (h *AuditHandler) Handles() []EventType { return AllEventTypes }
func (h *AuditHandler) Priority() int        { return 50 }

func (h *AuditHandler) Handle(_ context.Context, event *Event, _ *Result) error {
	if h.Dir == "" {
		return fmt.Errorf("audit: no wallet directory")
	}
	debug.LogEvent(h.Dir, string(event.Type), event.Wallet, string(event.Payload))
	return nil
}

// DebugHandler prints events to stderr when RW_DEBUG or --verbose is set.
// Priority 100 (runs last).
type DebugHandler struct{}

func (h *DebugHandler) ID() string           { return "debug" }
func (h *DebugHandler) Handles() []EventType { return AllEventTypes }
func (h *DebugHandler) Priority() int        { return 100 }

func (h *DebugHandler) Handle(_ context.Context, event *Event, _ *Result) error {
	debug.Logf("event %s %s t=%d %s\n", event.ID, event.Type, event.LedgerTime, event.Payload)
	return nil
}
