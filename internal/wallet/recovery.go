package wallet

import (
	"fmt"
	"math"

	"github.com/steveyegge/rwallet/internal/types"
)

// Phase is the recovery lifecycle status.
type Phase int

const (
	// NotInProgress: no proposal is open.
	NotInProgress Phase = iota
	// InProgress: a proposal is open, below threshold, inside its window.
	InProgress
	// CompletedAndReset: the evaluation that returned it closed the proposal,
	// committing the new owner if the threshold was met.
	CompletedAndReset
)

func (p Phase) String() string {
	switch p {
	case NotInProgress:
		return "NotInProgress"
	case InProgress:
		return "InProgress"
	case CompletedAndReset:
		return "CompletedAndReset"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{NotInProgress, InProgress, CompletedAndReset} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Proposal is an open recovery: a candidate owner, the distinct recovery
// addresses that attested to it (in signing order), and the instant its
// window closes.
type Proposal struct {
	ProposedOwner types.Identity   `json:"proposed_owner"`
	Signatures    []types.Identity `json:"signatures"`
	WindowEnd     uint64           `json:"window_end"`
}

// Recovery is the singleton recovery record. A nil Proposal means no
// recovery is in flight.
type Recovery struct {
	Proposal *Proposal `json:"proposal,omitempty"`
}

// Active reports whether a proposal is open.
func (r Recovery) Active() bool { return r.Proposal != nil }

// ProposedOwner returns the candidate owner, or the zero identity.
func (r Recovery) ProposedOwner() types.Identity {
	if r.Proposal == nil {
		return types.ZeroIdentity
	}
	return r.Proposal.ProposedOwner
}

// Signatures returns a copy of the attesting addresses.
func (r Recovery) Signatures() []types.Identity {
	if r.Proposal == nil {
		return nil
	}
	return append([]types.Identity(nil), r.Proposal.Signatures...)
}

// SignatureCount is len(Signatures()).
func (r Recovery) SignatureCount() uint32 {
	if r.Proposal == nil {
		return 0
	}
	return uint32(len(r.Proposal.Signatures))
}

// WindowEnd returns the window close time, 0 when no recovery is in flight.
func (r Recovery) WindowEnd() uint64 {
	if r.Proposal == nil {
		return 0
	}
	return r.Proposal.WindowEnd
}

// HasSigned reports whether id already attested to the open proposal.
func (r Recovery) HasSigned(id types.Identity) bool {
	return r.Proposal != nil && types.ContainsIdentity(r.Proposal.Signatures, id)
}

// evaluate is the pure transition rule. It returns the phase an advancing
// evaluation at now observes, and whether that evaluation commits the
// proposed owner. It never mutates rec.
func evaluate(rec Recovery, threshold uint32, now uint64) (phase Phase, commit bool) {
	if rec.Proposal == nil {
		return NotInProgress, false
	}
	count := rec.SignatureCount()
	if count < threshold && now < rec.Proposal.WindowEnd {
		return InProgress, false
	}
	return CompletedAndReset, count >= threshold
}

// windowEnd returns now+window, saturating instead of wrapping.
func windowEnd(now, window uint64) uint64 {
	if window > math.MaxUint64-now {
		return math.MaxUint64
	}
	return now + window
}
