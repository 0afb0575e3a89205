package eventbus

import (
	"encoding/json"
	"time"
)

// EventType identifies an event flowing through the bus.
type EventType string

const (
	// Lifecycle events emitted by the wallet.
	EventInit     EventType = "Init"
	EventRecovery EventType = "Recovery"
	EventSigned   EventType = "Signed"

	// Terminal recovery transitions.
	EventOwnerChanged    EventType = "OwnerChanged"
	EventRecoveryExpired EventType = "RecoveryExpired"

	// Custody events.
	EventDeposited EventType = "Deposited"
	EventWithdrawn EventType = "Withdrawn"
)

// AllEventTypes lists every event type in emission-category order.
var AllEventTypes = []EventType{
	EventInit, EventRecovery, EventSigned,
	EventOwnerChanged, EventRecoveryExpired,
	EventDeposited, EventWithdrawn,
}

// IsRecoveryEvent returns true for events that describe the recovery
// lifecycle (as opposed to configuration or custody).
func (t EventType) IsRecoveryEvent() bool {
	switch t {
	case EventRecovery, EventSigned, EventOwnerChanged, EventRecoveryExpired:
		return true
	}
	return false
}

// IsCustodyEvent returns true for deposit and withdrawal events.
func (t EventType) IsCustodyEvent() bool {
	return t == EventDeposited || t == EventWithdrawn
}

// Event is a single wallet event.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Wallet     string          `json:"wallet,omitempty"`
	LedgerTime uint64          `json:"ledger_time"`
	Payload    json.RawMessage `json:"payload,omitempty"`

	// PublishedAt is set by the bus when publishing to JetStream.
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// DecodePayload unmarshals the event payload into v.
func (e *Event) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// InitPayload carries data for Init events.
type InitPayload struct {
	Owner                 string   `json:"owner"`
	RecoveryAddresses     []string `json:"recovery_addresses"`
	RecoveryThreshold     uint32   `json:"recovery_threshold"`
	RecoveryWindowSeconds uint64   `json:"recovery_window_seconds"`
}

// RecoveryPayload carries data for Recovery events.
type RecoveryPayload struct {
	ProposedOwner string `json:"proposed_owner"`
	WindowEnd     uint64 `json:"window_end"`
}

// SignedPayload carries data for Signed events.
type SignedPayload struct {
	Signer         string `json:"signer"`
	SignatureCount uint32 `json:"signature_count"`
}

// OwnerChangedPayload carries data for OwnerChanged and RecoveryExpired
// events. For RecoveryExpired, NewOwner is the discarded proposal.
type OwnerChangedPayload struct {
	OldOwner       string `json:"old_owner"`
	NewOwner       string `json:"new_owner"`
	SignatureCount uint32 `json:"signature_count"`
}

// CustodyPayload carries data for Deposited and Withdrawn events.
type CustodyPayload struct {
	Counterparty string `json:"counterparty"`
	Asset        string `json:"asset"`
	Amount       int64  `json:"amount"`
	Balance      int64  `json:"balance"`
}

// Result aggregates handler responses for an event.
type Result struct {
	Handled  []string `json:"handled,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
