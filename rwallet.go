// Package rwallet provides a minimal public API for embedding a
// social-recovery wallet in other Go programs.
//
// The rw CLI is built on the same packages. Programs that only need to
// drive a wallet should use New with one of the storage constructors below.
package rwallet

import (
	"context"
	"time"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/memory"
	"github.com/steveyegge/rwallet/internal/storage/sqlite"
	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/wallet"
)

// Core wallet types
type (
	Wallet     = wallet.Wallet
	Options    = wallet.Options
	InitParams = wallet.InitParams
	Phase      = wallet.Phase
	Recovery   = wallet.Recovery
	Status     = wallet.Status
	Config     = wallet.Config
	Identity   = types.Identity
)

// Authorization types
type (
	Action   = auth.Action
	Proof    = auth.Proof
	Verifier = auth.Verifier
)

// Phase constants
const (
	NotInProgress     = wallet.NotInProgress
	InProgress        = wallet.InProgress
	CompletedAndReset = wallet.CompletedAndReset
)

// Wallet errors, matched with errors.Is. Code returns the numeric code.
var (
	ErrNotInitialized                   = wallet.ErrNotInitialized
	ErrInvalidRecoveryAddress           = wallet.ErrInvalidRecoveryAddress
	ErrInvalidRecoveryThreshold         = wallet.ErrInvalidRecoveryThreshold
	ErrRecoveryNotInProgress            = wallet.ErrRecoveryNotInProgress
	ErrInvalidNewOwnerAddress           = wallet.ErrInvalidNewOwnerAddress
	ErrAlreadySigned                    = wallet.ErrAlreadySigned
	ErrRecoveryInProgress               = wallet.ErrRecoveryInProgress
	ErrInsufficientFunds                = wallet.ErrInsufficientFunds
	ErrSignatureThresholdAlreadyReached = wallet.ErrSignatureThresholdAlreadyReached
	ErrAlreadyInitialized               = wallet.ErrAlreadyInitialized
	ErrInvalidAmount                    = wallet.ErrInvalidAmount
	ErrAssetMismatch                    = wallet.ErrAssetMismatch
	ErrInvalidOwnerAddress              = wallet.ErrInvalidOwnerAddress
)

// Storage is the transactional key-value store a wallet persists to.
type Storage = storage.Store

// New creates a wallet over opts.Store. See wallet.Options.
func New(opts Options) (*Wallet, error) {
	return wallet.New(opts)
}

// NewSQLiteStorage opens (creating if needed) a SQLite wallet database.
func NewSQLiteStorage(ctx context.Context, path string) (Storage, error) {
	s, err := sqlite.New(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryStorage returns an empty in-process store.
func NewMemoryStorage() Storage {
	return memory.New()
}

// NewSignatureVerifier verifies secp256k1 proofs against the wall clock,
// accepting timestamps within tolerance (0 selects the default).
func NewSignatureVerifier(tolerance time.Duration) Verifier {
	return auth.NewSignatureVerifier(clock.System{}, tolerance)
}

// ParseIdentity parses a 20-byte hex address. The zero address is rejected.
func ParseIdentity(s string) (Identity, error) {
	return types.ParseIdentity(s)
}

// Code returns the numeric code of a wallet error, 0 for other errors.
func Code(err error) int {
	return wallet.Code(err)
}
