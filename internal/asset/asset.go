// Package asset moves fungible value between identities on behalf of the
// wallet. The wallet only needs Transferer; the ledgers here back the CLI's
// dev mode and the tests.
package asset

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

var (
	// ErrInsufficientBalance is returned when the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidAsset is returned for malformed asset identifiers.
	ErrInvalidAsset = errors.New("invalid asset id")
)

var assetIDRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.:-]{0,63}$`)

// ValidateID checks an asset identifier ("usd", "erc20:0xabc...").
func ValidateID(id string) error {
	if !assetIDRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidAsset, id)
	}
	return nil
}

// Transferer moves amount of assetID from one identity to another.
type Transferer interface {
	Transfer(ctx context.Context, assetID string, from, to types.Identity, amount int64) error
}

// TxTransferer is implemented by ledgers that live in the wallet's own store.
// The wallet uses it to make the transfer part of its storage transaction.
type TxTransferer interface {
	TransferTx(ctx context.Context, tx storage.Transaction, assetID string, from, to types.Identity, amount int64) error
}

func checkTransfer(assetID string, amount int64) error {
	if err := ValidateID(assetID); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func insufficient(assetID string, from types.Identity, have, want int64) error {
	return fmt.Errorf("%w: %s holds %d %s, needs %d", ErrInsufficientBalance, from.Hex(), have, assetID, want)
}
