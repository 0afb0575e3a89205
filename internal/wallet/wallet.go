// Package wallet implements a social-recovery custody wallet.
//
// The wallet holds one asset balance on behalf of an owner. A fixed set of
// recovery addresses can replace the owner: anyone may propose a new owner
// with Recover, which opens a time window; recovery addresses attest with
// Sign; once the threshold is met, or the window closes, the next advancing
// evaluation commits the new owner (threshold met) or discards the proposal.
//
// There is no background timer. Every mutating operation first runs the
// transition rule inside its storage transaction, so expiry and commit
// happen lazily on the next call. Status is the pure, non-advancing view.
//
// All operations on one Wallet are serialized by an internal mutex, and each
// runs as a single storage transaction: an error leaves state unchanged.
// Events are emitted only after the transaction commits.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/steveyegge/rwallet/internal/asset"
	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/debug"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

// Options wires a Wallet to its collaborators. Store, Verifier and Self are
// required.
type Options struct {
	Store    storage.Store
	Verifier auth.Verifier

	// Self is the wallet's own custody account: the counterparty of every
	// transfer and the identity proofs are bound to.
	Self types.Identity

	// Transferer moves value for Deposit and Withdraw. When it also
	// implements asset.TxTransferer the move joins the wallet transaction.
	Transferer asset.Transferer
	Clock      clock.Clock      // defaults to clock.System
	Events     eventbus.Emitter // defaults to eventbus.Discard
}

// Wallet is the aggregate root over Config, Recovery and Balance.
type Wallet struct {
	mu       sync.Mutex
	store    storage.Store
	verifier auth.Verifier
	self     types.Identity
	transfer asset.Transferer
	clock    clock.Clock
	events   eventbus.Emitter
}

// New validates opts and returns a Wallet.
func New(opts Options) (*Wallet, error) {
	if opts.Store == nil {
		return nil, errors.New("wallet: store is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("wallet: verifier is required")
	}
	if types.IsZero(opts.Self) {
		return nil, errors.New("wallet: self address is required")
	}
	w := &Wallet{
		store:    opts.Store,
		verifier: opts.Verifier,
		self:     opts.Self,
		transfer: opts.Transferer,
		clock:    opts.Clock,
		events:   opts.Events,
	}
	if w.clock == nil {
		w.clock = clock.System{}
	}
	if w.events == nil {
		w.events = eventbus.Discard{}
	}
	return w, nil
}

// Self returns the wallet's custody account.
func (w *Wallet) Self() types.Identity { return w.self }

// InitParams configures a new wallet.
type InitParams struct {
	Owner             types.Identity
	RecoveryAddresses []types.Identity
	Threshold         uint32
	WindowSeconds     uint64
}

// Init configures the wallet once. Recovery addresses are checked in order;
// the first one that is zero, the owner, or a repeat fails the call with
// ErrInvalidRecoveryAddress. A second Init fails with ErrAlreadyInitialized.
func (w *Wallet) Init(ctx context.Context, p InitParams) error {
	return w.update(ctx, "init", func(s *session) error {
		done, err := readInitialized(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyInitialized
		}
		if types.IsZero(p.Owner) {
			return ErrInvalidOwnerAddress
		}

		seen := make(map[types.Identity]bool, len(p.RecoveryAddresses))
		for _, r := range p.RecoveryAddresses {
			switch {
			case types.IsZero(r):
				return fmt.Errorf("%w: zero address", ErrInvalidRecoveryAddress)
			case r == p.Owner:
				return fmt.Errorf("%w: %s is the owner", ErrInvalidRecoveryAddress, r.Hex())
			case seen[r]:
				return fmt.Errorf("%w: %s listed twice", ErrInvalidRecoveryAddress, r.Hex())
			}
			seen[r] = true
		}
		n := uint32(len(p.RecoveryAddresses))
		if p.Threshold == 0 || p.Threshold > n {
			return fmt.Errorf("%w: %d of %d", ErrInvalidRecoveryThreshold, p.Threshold, n)
		}

		for _, r := range p.RecoveryAddresses {
			if err := storage.SetJSON(s.ctx, s.tx, recoveryAddressKey(r), true); err != nil {
				return err
			}
		}
		writes := []struct {
			key storage.Key
			val any
		}{
			{keyOwner, p.Owner},
			{keyRecoveryAddressList, p.RecoveryAddresses},
			{keyRecoveryAddressCount, n},
			{keyRecoveryThreshold, p.Threshold},
			{keyRecoveryWindow, p.WindowSeconds},
			{keyRecovery, Recovery{}},
			{keyInitialized, true},
		}
		for _, wr := range writes {
			if err := storage.SetJSON(s.ctx, s.tx, wr.key, wr.val); err != nil {
				return err
			}
		}

		addrs := make([]string, len(p.RecoveryAddresses))
		for i, r := range p.RecoveryAddresses {
			addrs[i] = r.Hex()
		}
		return s.emit(eventbus.EventInit, eventbus.InitPayload{
			Owner:                 p.Owner.Hex(),
			RecoveryAddresses:     addrs,
			RecoveryThreshold:     p.Threshold,
			RecoveryWindowSeconds: p.WindowSeconds,
		})
	})
}

// Recover proposes newOwner and opens a recovery window. Anyone may call it.
// The phase is advanced first, so a proposal that just completed or expired
// is replaced, and newOwner is checked against the owner that results.
func (w *Wallet) Recover(ctx context.Context, newOwner types.Identity) error {
	return w.update(ctx, "recover", func(s *session) error {
		if err := requireInitialized(s.ctx, s.tx); err != nil {
			return err
		}
		phase, err := s.advance()
		if err != nil {
			return err
		}

		owner, err := readOwner(s.ctx, s.tx)
		if err != nil {
			return err
		}
		member, err := isRecoveryAddress(s.ctx, s.tx, newOwner)
		if err != nil {
			return err
		}
		switch {
		case types.IsZero(newOwner):
			return fmt.Errorf("%w: zero address", ErrInvalidNewOwnerAddress)
		case newOwner == owner:
			return fmt.Errorf("%w: %s is already the owner", ErrInvalidNewOwnerAddress, newOwner.Hex())
		case member:
			return fmt.Errorf("%w: %s is a recovery address", ErrInvalidNewOwnerAddress, newOwner.Hex())
		}
		if phase == InProgress {
			return ErrRecoveryInProgress
		}

		var window uint64
		if err := storage.GetJSON(s.ctx, s.tx, keyRecoveryWindow, &window); err != nil {
			return err
		}
		rec := Recovery{Proposal: &Proposal{
			ProposedOwner: newOwner,
			Signatures:    []types.Identity{},
			WindowEnd:     windowEnd(s.now, window),
		}}
		if err := storage.SetJSON(s.ctx, s.tx, keyRecovery, rec); err != nil {
			return err
		}
		return s.emit(eventbus.EventRecovery, eventbus.RecoveryPayload{
			ProposedOwner: newOwner.Hex(),
			WindowEnd:     rec.WindowEnd(),
		})
	})
}

// Sign records signer's attestation for the open proposal. proof must show
// that signer authorized SignAction for the proposal as currently stored.
// Reaching the threshold does not commit the new owner; the next advancing
// evaluation does.
func (w *Wallet) Sign(ctx context.Context, signer types.Identity, proof auth.Proof) error {
	return w.update(ctx, "sign", func(s *session) error {
		if err := requireInitialized(s.ctx, s.tx); err != nil {
			return err
		}
		pending, err := readRecovery(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if err := s.authorize(signer, SignAction(w.self, signer, pending.ProposedOwner()), proof); err != nil {
			return err
		}
		member, err := isRecoveryAddress(s.ctx, s.tx, signer)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("%w: %s is not in the recovery set", ErrInvalidRecoveryAddress, signer.Hex())
		}

		phase, err := s.advance()
		if err != nil {
			return err
		}
		switch phase {
		case NotInProgress:
			return ErrRecoveryNotInProgress
		case CompletedAndReset:
			return ErrSignatureThresholdAlreadyReached
		}

		rec, err := readRecovery(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if rec.HasSigned(signer) {
			return fmt.Errorf("%w: %s", ErrAlreadySigned, signer.Hex())
		}
		rec.Proposal.Signatures = append(rec.Proposal.Signatures, signer)
		if err := storage.SetJSON(s.ctx, s.tx, keyRecovery, rec); err != nil {
			return err
		}
		return s.emit(eventbus.EventSigned, eventbus.SignedPayload{
			Signer:         signer.Hex(),
			SignatureCount: rec.SignatureCount(),
		})
	})
}

// RecoveryState evaluates the recovery phase and, if the window has closed
// or the threshold is met, performs the terminal transition before
// returning CompletedAndReset. A second call right after returns
// NotInProgress. Use Status for a read that never writes.
func (w *Wallet) RecoveryState(ctx context.Context) (Phase, error) {
	var phase Phase
	err := w.update(ctx, "recovery_state", func(s *session) error {
		if err := requireInitialized(s.ctx, s.tx); err != nil {
			return err
		}
		var err error
		phase, err = s.advance()
		return err
	})
	return phase, err
}

// update runs fn in one storage transaction under the wallet mutex and emits
// the events fn queued once the transaction has committed. fn may run more
// than once if the store retries the transaction; each attempt starts with
// a fresh session.
func (w *Wallet) update(ctx context.Context, op string, fn func(s *session) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx = storage.WithOpName(ctx, op)
	verified := map[string]error{}
	var s *session
	err := w.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		s = &session{w: w, ctx: ctx, tx: tx, now: w.clock.Now(), verified: verified}
		return fn(s)
	})
	if err != nil {
		return err
	}
	for _, ev := range s.events {
		if err := w.events.Emit(ctx, ev); err != nil {
			debug.Logf("wallet: emit %s: %v\n", ev.Type, err)
		}
	}
	return nil
}

// session is the state of one transaction attempt.
type session struct {
	w        *Wallet
	ctx      context.Context
	tx       storage.Transaction
	now      uint64
	events   []*eventbus.Event
	verified map[string]error // shared across retries so nonces are checked once
}

// advance applies the transition rule to the stored recovery record,
// committing or discarding a finished proposal.
func (s *session) advance() (Phase, error) {
	rec, err := readRecovery(s.ctx, s.tx)
	if err != nil {
		return NotInProgress, err
	}
	threshold, err := readThreshold(s.ctx, s.tx)
	if err != nil {
		return NotInProgress, err
	}
	phase, commit := evaluate(rec, threshold, s.now)
	if phase != CompletedAndReset {
		return phase, nil
	}

	oldOwner, err := readOwner(s.ctx, s.tx)
	if err != nil {
		return phase, err
	}
	payload := eventbus.OwnerChangedPayload{
		OldOwner:       oldOwner.Hex(),
		NewOwner:       rec.ProposedOwner().Hex(),
		SignatureCount: rec.SignatureCount(),
	}
	typ := eventbus.EventRecoveryExpired
	if commit {
		if err := storage.SetJSON(s.ctx, s.tx, keyOwner, rec.ProposedOwner()); err != nil {
			return phase, err
		}
		typ = eventbus.EventOwnerChanged
	}
	if err := storage.SetJSON(s.ctx, s.tx, keyRecovery, Recovery{}); err != nil {
		return phase, err
	}
	return phase, s.emit(typ, payload)
}

// authorize verifies proof once per operation, even across retries.
func (s *session) authorize(id types.Identity, action auth.Action, proof auth.Proof) error {
	key := id.Hex() + "|" + action.Message(proof.Nonce, proof.Timestamp)
	if err, ok := s.verified[key]; ok {
		return err
	}
	err := s.w.verifier.Verify(s.ctx, id, action, proof)
	s.verified[key] = err
	return err
}

// emit queues an event for delivery after commit.
func (s *session) emit(typ eventbus.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	s.events = append(s.events, &eventbus.Event{
		Type:       typ,
		Wallet:     s.w.self.Hex(),
		LedgerTime: s.now,
		Payload:    data,
	})
	return nil
}
