package asset

import (
	"context"
	"math"
	"sync"

	"github.com/steveyegge/rwallet/internal/types"
)

var _ Transferer = (*Ledger)(nil)

// Transfer records one completed movement.
type Transfer struct {
	Asset  string
	From   types.Identity
	To     types.Identity
	Amount int64
}

// Ledger is an in-memory multi-asset ledger.
type Ledger struct {
	mu        sync.Mutex
	balances  map[string]map[types.Identity]int64
	transfers []Transfer
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[types.Identity]int64)}
}

// Mint credits amount of assetID to to.
func (l *Ledger) Mint(assetID string, to types.Identity, amount int64) error {
	if err := checkTransfer(assetID, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(assetID)
	if acct[to] > math.MaxInt64-amount {
		return ErrInvalidAmount
	}
	acct[to] += amount
	return nil
}

// BalanceOf returns id's holding of assetID.
func (l *Ledger) BalanceOf(assetID string, id types.Identity) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[assetID][id]
}

func (l *Ledger) Transfer(_ context.Context, assetID string, from, to types.Identity, amount int64) error {
	if err := checkTransfer(assetID, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(assetID)
	if acct[from] < amount {
		return insufficient(assetID, from, acct[from], amount)
	}
	if acct[to] > math.MaxInt64-amount {
		return ErrInvalidAmount
	}
	acct[from] -= amount
	acct[to] += amount
	l.transfers = append(l.transfers, Transfer{Asset: assetID, From: from, To: to, Amount: amount})
	return nil
}

// Transfers returns the completed transfers in order.
func (l *Ledger) Transfers() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transfer(nil), l.transfers...)
}

func (l *Ledger) account(assetID string) map[types.Identity]int64 {
	acct, ok := l.balances[assetID]
	if !ok {
		acct = make(map[types.Identity]int64)
		l.balances[assetID] = acct
	}
	return acct
}
