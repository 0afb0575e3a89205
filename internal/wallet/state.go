package wallet

import (
	"context"
	"fmt"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/types"
)

// Config is the wallet's configuration as of the read: the current owner
// plus the settings fixed at init.
type Config struct {
	Owner             types.Identity   `json:"owner"`
	RecoveryAddresses []types.Identity `json:"recovery_addresses"`
	Threshold         uint32           `json:"recovery_threshold"`
	WindowSeconds     uint64           `json:"recovery_window_seconds"`
	CustodyAsset      string           `json:"custody_asset,omitempty"`
}

// IsRecoveryAddress reports whether id belongs to the recovery set.
func (c Config) IsRecoveryAddress(id types.Identity) bool {
	return types.ContainsIdentity(c.RecoveryAddresses, id)
}

func readInitialized(ctx context.Context, r storage.Reader) (bool, error) {
	var ok bool
	if err := storage.GetJSONOr(ctx, r, keyInitialized, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func requireInitialized(ctx context.Context, r storage.Reader) error {
	ok, err := readInitialized(ctx, r)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

func readOwner(ctx context.Context, r storage.Reader) (types.Identity, error) {
	var owner types.Identity
	if err := storage.GetJSON(ctx, r, keyOwner, &owner); err != nil {
		return types.ZeroIdentity, err
	}
	return owner, nil
}

func readThreshold(ctx context.Context, r storage.Reader) (uint32, error) {
	var threshold uint32
	if err := storage.GetJSON(ctx, r, keyRecoveryThreshold, &threshold); err != nil {
		return 0, err
	}
	return threshold, nil
}

func readConfig(ctx context.Context, r storage.Reader) (Config, error) {
	var cfg Config
	var err error
	if cfg.Owner, err = readOwner(ctx, r); err != nil {
		return Config{}, err
	}
	if cfg.Threshold, err = readThreshold(ctx, r); err != nil {
		return Config{}, err
	}
	if err := storage.GetJSON(ctx, r, keyRecoveryWindow, &cfg.WindowSeconds); err != nil {
		return Config{}, err
	}
	if err := storage.GetJSON(ctx, r, keyRecoveryAddressList, &cfg.RecoveryAddresses); err != nil {
		return Config{}, err
	}
	if cfg.CustodyAsset, err = readCustodyAsset(ctx, r); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isRecoveryAddress(ctx context.Context, r storage.Reader, id types.Identity) (bool, error) {
	ok, err := r.Has(ctx, recoveryAddressKey(id))
	if err != nil {
		return false, fmt.Errorf("has %s: %w", recoveryAddressKey(id), err)
	}
	return ok, nil
}

func readRecovery(ctx context.Context, r storage.Reader) (Recovery, error) {
	var rec Recovery
	if err := storage.GetJSONOr(ctx, r, keyRecovery, &rec); err != nil {
		return Recovery{}, err
	}
	return rec, nil
}

func readBalance(ctx context.Context, r storage.Reader) (int64, error) {
	var bal int64
	if err := storage.GetJSONOr(ctx, r, keyBalance, &bal); err != nil {
		return 0, err
	}
	return bal, nil
}

func readCustodyAsset(ctx context.Context, r storage.Reader) (string, error) {
	var id string
	if err := storage.GetJSONOr(ctx, r, keyCustodyAsset, &id); err != nil {
		return "", err
	}
	return id, nil
}
