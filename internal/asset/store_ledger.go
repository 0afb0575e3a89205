package asset

import (
	"context"
	"fmt"
	"math"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

var (
	_ Transferer   = (*StoreLedger)(nil)
	_ TxTransferer = (*StoreLedger)(nil)
)

// StoreLedger keeps balances in a storage.Store under "ledger/<asset>/<addr>".
// Sharing the wallet's store lets deposits and withdrawals commit atomically
// with the wallet's own balance.
type StoreLedger struct {
	store storage.Store
}

// NewStoreLedger returns a ledger persisted in store.
func NewStoreLedger(store storage.Store) *StoreLedger {
	return &StoreLedger{store: store}
}

func ledgerKey(assetID string, id types.Identity) storage.Key {
	return storage.Key(fmt.Sprintf("ledger/%s/%s", assetID, id.Hex()))
}

func readBalance(ctx context.Context, r storage.Reader, assetID string, id types.Identity) (int64, error) {
	var n int64
	if err := storage.GetJSONOr(ctx, r, ledgerKey(assetID, id), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// BalanceOf returns id's holding of assetID.
func (l *StoreLedger) BalanceOf(ctx context.Context, assetID string, id types.Identity) (int64, error) {
	if err := ValidateID(assetID); err != nil {
		return 0, err
	}
	return readBalance(ctx, l.store, assetID, id)
}

// Mint credits amount of assetID to to.
func (l *StoreLedger) Mint(ctx context.Context, assetID string, to types.Identity, amount int64) error {
	if err := checkTransfer(assetID, amount); err != nil {
		return err
	}
	return l.store.RunInTransaction(storage.WithOpName(ctx, "mint"), func(tx storage.Transaction) error {
		have, err := readBalance(ctx, tx, assetID, to)
		if err != nil {
			return err
		}
		if have > math.MaxInt64-amount {
			return ErrInvalidAmount
		}
		return storage.SetJSON(ctx, tx, ledgerKey(assetID, to), have+amount)
	})
}

func (l *StoreLedger) Transfer(ctx context.Context, assetID string, from, to types.Identity, amount int64) error {
	return l.store.RunInTransaction(storage.WithOpName(ctx, "transfer"), func(tx storage.Transaction) error {
		return l.TransferTx(ctx, tx, assetID, from, to, amount)
	})
}

// TransferTx performs the transfer inside an existing transaction.
func (l *StoreLedger) TransferTx(ctx context.Context, tx storage.Transaction, assetID string, from, to types.Identity, amount int64) error {
	if err := checkTransfer(assetID, amount); err != nil {
		return err
	}
	fromBal, err := readBalance(ctx, tx, assetID, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return insufficient(assetID, from, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := readBalance(ctx, tx, assetID, to)
	if err != nil {
		return err
	}
	if toBal > math.MaxInt64-amount {
		return ErrInvalidAmount
	}
	if err := storage.SetJSON(ctx, tx, ledgerKey(assetID, from), fromBal-amount); err != nil {
		return err
	}
	return storage.SetJSON(ctx, tx, ledgerKey(assetID, to), toBal+amount)
}
