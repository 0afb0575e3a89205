package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/steveyegge/rwallet/internal/asset"
	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

var errNoTransferer = errors.New("wallet: no asset transferer configured")

// Deposit moves amount of assetID from `from` into the wallet. The first
// deposit pins the custody asset; later deposits of any other asset fail
// with ErrAssetMismatch. Sufficiency of from's funds is decided by the
// Transferer.
func (w *Wallet) Deposit(ctx context.Context, from types.Identity, assetID string, amount int64, proof auth.Proof) error {
	return w.update(ctx, "deposit", func(s *session) error {
		if err := requireInitialized(s.ctx, s.tx); err != nil {
			return err
		}
		if err := s.authorize(from, DepositAction(w.self, from, assetID, amount), proof); err != nil {
			return err
		}
		if amount <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
		}
		if err := asset.ValidateID(assetID); err != nil {
			return err
		}
		custody, err := readCustodyAsset(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if custody != "" && custody != assetID {
			return fmt.Errorf("%w: wallet holds %s, got %s", ErrAssetMismatch, custody, assetID)
		}
		bal, err := readBalance(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if bal > math.MaxInt64-amount {
			return fmt.Errorf("%w: balance would overflow", ErrInvalidAmount)
		}

		if custody == "" {
			if err := storage.SetJSON(s.ctx, s.tx, keyCustodyAsset, assetID); err != nil {
				return err
			}
		}
		bal += amount
		if err := storage.SetJSON(s.ctx, s.tx, keyBalance, bal); err != nil {
			return err
		}
		if err := s.transfer(assetID, from, w.self, amount); err != nil {
			return err
		}
		return s.emit(eventbus.EventDeposited, eventbus.CustodyPayload{
			Counterparty: from.Hex(),
			Asset:        assetID,
			Amount:       amount,
			Balance:      bal,
		})
	})
}

// Withdraw moves amount of assetID from the wallet to its owner. The owner
// is read after the recovery phase is advanced, so a recovery that
// completes in this call decides who must authorize.
func (w *Wallet) Withdraw(ctx context.Context, assetID string, amount int64, proof auth.Proof) error {
	return w.update(ctx, "withdraw", func(s *session) error {
		if err := requireInitialized(s.ctx, s.tx); err != nil {
			return err
		}
		if _, err := s.advance(); err != nil {
			return err
		}
		owner, err := readOwner(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if err := s.authorize(owner, WithdrawAction(w.self, owner, assetID, amount), proof); err != nil {
			return err
		}
		if amount <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
		}
		custody, err := readCustodyAsset(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if custody != "" && custody != assetID {
			return fmt.Errorf("%w: wallet holds %s, got %s", ErrAssetMismatch, custody, assetID)
		}
		bal, err := readBalance(s.ctx, s.tx)
		if err != nil {
			return err
		}
		if amount > bal {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, bal, amount)
		}

		bal -= amount
		if err := storage.SetJSON(s.ctx, s.tx, keyBalance, bal); err != nil {
			return err
		}
		if err := s.transfer(assetID, w.self, owner, amount); err != nil {
			return err
		}
		return s.emit(eventbus.EventWithdrawn, eventbus.CustodyPayload{
			Counterparty: owner.Hex(),
			Asset:        assetID,
			Amount:       amount,
			Balance:      bal,
		})
	})
}

// transfer moves value through the configured Transferer. A TxTransferer
// joins the current transaction; callers invoke any other Transferer as
// their last fallible step.
func (s *session) transfer(assetID string, from, to types.Identity, amount int64) error {
	switch t := s.w.transfer.(type) {
	case nil:
		return errNoTransferer
	case asset.TxTransferer:
		return t.TransferTx(s.ctx, s.tx, assetID, from, to, amount)
	default:
		return t.Transfer(s.ctx, assetID, from, to, amount)
	}
}
