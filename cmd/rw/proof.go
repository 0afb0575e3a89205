package main

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/types"
)

// addKeyFlag registers --key, falling back to the "key" config setting.
func addKeyFlag(cmd *cobra.Command, who string) {
	cmd.Flags().String("key", "", "Key file of the "+who+" (default: config key)")
}

// resolveSigner returns the identity acting for cmd and the key that proves
// it. Without a key file the identity comes from addrFlag and no proof is
// produced, which only passes with auth.verify off.
func resolveSigner(cmd *cobra.Command, addrFlag string) (types.Identity, *ecdsa.PrivateKey, error) {
	path, _ := cmd.Flags().GetString("key")
	if path == "" {
		path = config.GetString("key")
	}
	if path != "" {
		key, err := auth.LoadKey(path)
		if err != nil {
			return types.ZeroIdentity, nil, err
		}
		return auth.Address(key), key, nil
	}
	if addrFlag != "" {
		if raw, _ := cmd.Flags().GetString(addrFlag); raw != "" {
			id, err := types.ParseIdentity(raw)
			return id, nil, err
		}
	}
	return types.ZeroIdentity, nil, fmt.Errorf("--key is required")
}

// prove signs action at the current ledger time. A nil key yields an empty
// proof.
func prove(key *ecdsa.PrivateKey, action auth.Action) (auth.Proof, error) {
	if key == nil {
		return auth.Proof{}, nil
	}
	return auth.Sign(key, action, app.wallet.LedgerTime())
}
