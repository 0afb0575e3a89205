package wallet

import (
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

// Logical storage keys. Values are JSON.
const (
	keyOwner                storage.Key = "owner_address"
	keyBalance              storage.Key = "balance"
	keyRecoveryAddressCount storage.Key = "recovery_address_count"
	keyRecoveryAddressList  storage.Key = "recovery_address_list"
	keyRecoveryThreshold    storage.Key = "recovery_threshold"
	keyRecoveryWindow       storage.Key = "recovery_window_seconds"
	keyRecovery             storage.Key = "recovery"
	keyInitialized          storage.Key = "contract_initialized"
	keyCustodyAsset         storage.Key = "custody_asset"
)

// recoveryAddressKey marks membership of id in the recovery set.
func recoveryAddressKey(id types.Identity) storage.Key {
	return storage.Key("recovery_address/" + id.Hex())
}
