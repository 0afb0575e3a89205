package wallet

import (
	"context"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

// Queries read the store directly under the wallet mutex. None of them
// advance the recovery phase; RecoveryState is the advancing read.

// Owner returns the current owner as stored. A recovery that has met its
// threshold is not reflected until the next advancing call; see Status.
func (w *Wallet) Owner(ctx context.Context) (types.Identity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := requireInitialized(ctx, w.store); err != nil {
		return types.ZeroIdentity, err
	}
	return readOwner(ctx, w.store)
}

// Balance returns the custody balance, 0 if nothing was ever deposited or
// the wallet is not initialized.
func (w *Wallet) Balance(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return readBalance(ctx, w.store)
}

// Recovery returns the stored recovery record.
func (w *Wallet) Recovery(ctx context.Context) (Recovery, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := requireInitialized(ctx, w.store); err != nil {
		return Recovery{}, err
	}
	return readRecovery(ctx, w.store)
}

// Config returns the owner and the settings fixed at init.
func (w *Wallet) Config(ctx context.Context) (Config, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := requireInitialized(ctx, w.store); err != nil {
		return Config{}, err
	}
	return readConfig(ctx, w.store)
}

// RecoveryAddressCount returns the size of the recovery set.
func (w *Wallet) RecoveryAddressCount(ctx context.Context) (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := requireInitialized(ctx, w.store); err != nil {
		return 0, err
	}
	var n uint32
	if err := storage.GetJSON(ctx, w.store, keyRecoveryAddressCount, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// LedgerTime returns the wallet clock in unix seconds.
func (w *Wallet) LedgerTime() uint64 {
	return w.clock.Now()
}

// Status is a read-only projection of the wallet at Now. Phase is what the
// next advancing evaluation would observe; WouldCommit is set when that
// evaluation commits the proposed owner. EffectiveOwner is the owner after
// that transition, the identity that must authorize a withdrawal now.
type Status struct {
	Now            uint64         `json:"now"`
	Phase          Phase          `json:"phase"`
	WouldCommit    bool           `json:"would_commit"`
	Owner          types.Identity `json:"owner"`
	EffectiveOwner types.Identity `json:"effective_owner"`
	Recovery       Recovery       `json:"recovery"`
	Threshold      uint32         `json:"recovery_threshold"`
	Balance        int64          `json:"balance"`
	Asset          string         `json:"asset,omitempty"`
}

// Status evaluates the recovery phase without applying it.
func (w *Wallet) Status(ctx context.Context) (Status, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := requireInitialized(ctx, w.store); err != nil {
		return Status{}, err
	}

	st := Status{Now: w.clock.Now()}
	var err error
	if st.Owner, err = readOwner(ctx, w.store); err != nil {
		return Status{}, err
	}
	if st.Recovery, err = readRecovery(ctx, w.store); err != nil {
		return Status{}, err
	}
	if st.Threshold, err = readThreshold(ctx, w.store); err != nil {
		return Status{}, err
	}
	if st.Balance, err = readBalance(ctx, w.store); err != nil {
		return Status{}, err
	}
	if st.Asset, err = readCustodyAsset(ctx, w.store); err != nil {
		return Status{}, err
	}

	st.Phase, st.WouldCommit = evaluate(st.Recovery, st.Threshold, st.Now)
	st.EffectiveOwner = st.Owner
	if st.WouldCommit {
		st.EffectiveOwner = st.Recovery.ProposedOwner()
	}
	return st, nil
}
