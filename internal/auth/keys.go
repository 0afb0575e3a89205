package auth

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/steveyegge/rwallet/internal/types"
)

// GenerateKey creates a new secp256k1 key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Address returns the identity controlled by key.
func Address(key *ecdsa.PrivateKey) types.Identity {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// SaveKey writes key to path as hex, creating parent directories.
// The file is readable by the owner only.
func SaveKey(path string, key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	}
	return crypto.SaveECDSA(path, key)
}

// LoadKey reads a hex-encoded private key written by SaveKey.
func LoadKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", path, err)
	}
	return key, nil
}
