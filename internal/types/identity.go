// Package types defines the value types shared by the wallet core, its
// storage adapters and the rw CLI.
package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an opaque principal that can authorize calls. Identities are
// Ethereum-style 20-byte addresses rendered as EIP-55 hex.
type Identity = common.Address

// ZeroIdentity is never a valid owner, recovery address or signer.
var ZeroIdentity = Identity{}

// IsZero reports whether id is the zero address.
func IsZero(id Identity) bool {
	return id == ZeroIdentity
}

// ParseIdentity parses a 0x-prefixed (or bare) 40 digit hex address.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroIdentity, fmt.Errorf("invalid identity %q: expected 20-byte hex address", s)
	}
	id := common.HexToAddress(s)
	if IsZero(id) {
		return ZeroIdentity, fmt.Errorf("invalid identity %q: zero address", s)
	}
	return id, nil
}

// ParseIdentities parses each element of ss in order. Duplicates are kept so
// callers can reject them explicitly.
func ParseIdentities(ss []string) ([]Identity, error) {
	out := make([]Identity, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := ParseIdentity(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ContainsIdentity reports whether id appears in ids.
func ContainsIdentity(ids []Identity, id Identity) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
