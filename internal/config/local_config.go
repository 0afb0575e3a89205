package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of config.yaml read directly from a wallet
// directory rather than through the viper singleton. `rw status --watch`
// uses it to pick up edits made while it runs.
type LocalConfig struct {
	Backend       string
	DB            string
	WalletAddress string
	NATSURL       string
}

// LoadLocalConfig reads and parses config.yaml from walletDir. Keys may be
// nested (wallet: {address: ...}) or flat (wallet.address: ...), as written
// by `rw config set`.
//
// Returns an empty LocalConfig (not nil) if the file doesn't exist or can't be parsed.
func LoadLocalConfig(walletDir string) *LocalConfig {
	data, err := os.ReadFile(filepath.Join(walletDir, FileName)) // #nosec G304 - path from walletDir
	if err != nil {
		return &LocalConfig{}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &LocalConfig{}
	}
	flat := map[string]string{}
	flatten("", raw, flat)

	return &LocalConfig{
		Backend:       flat["backend"],
		DB:            flat["db"],
		WalletAddress: flat["wallet.address"],
		NATSURL:       flat["nats.url"],
	}
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch tv := val.(type) {
		case map[string]any:
			flatten(key, tv, out)
		case nil:
		default:
			out[key] = fmt.Sprint(tv)
		}
	}
}
