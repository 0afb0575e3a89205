package wallet

import (
	"strconv"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/types"
)

// SignAction is what a recovery address authorizes when attesting to
// proposed as the new owner of the wallet at self.
func SignAction(self, signer, proposed types.Identity) auth.Action {
	return auth.Action{Wallet: self, Op: "sign", Args: []string{signer.Hex(), proposed.Hex()}}
}

// DepositAction is what from authorizes to move amount of assetID into the
// wallet.
func DepositAction(self, from types.Identity, assetID string, amount int64) auth.Action {
	return auth.Action{Wallet: self, Op: "deposit", Args: []string{from.Hex(), assetID, strconv.FormatInt(amount, 10)}}
}

// WithdrawAction is what the current owner authorizes to move amount of
// assetID out of the wallet.
func WithdrawAction(self, owner types.Identity, assetID string, amount int64) auth.Action {
	return auth.Action{Wallet: self, Op: "withdraw", Args: []string{owner.Hex(), assetID, strconv.FormatInt(amount, 10)}}
}
