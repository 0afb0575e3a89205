// Package auth verifies that a wallet operation was authorized by a given
// identity.
//
// An authorization is an explicit Proof passed alongside the operation: a
// secp256k1 signature (EIP-191 personal-sign framing) over a canonical
// message binding the wallet, the action, its arguments, a nonce and a
// timestamp. Verifiers are injected into the wallet so tests can substitute
// AllowAll or a VerifierFunc.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/rwallet/internal/types"
)

// ErrUnauthorized is the root of every authorization failure.
var ErrUnauthorized = errors.New("unauthorized")

// Specific causes, always wrapped together with ErrUnauthorized.
var (
	ErrMissingProof        = errors.New("missing proof")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidSignatureLen = errors.New("signature must be 65 bytes")
	ErrAddressMismatch     = errors.New("recovered address does not match")
	ErrSignatureExpired    = errors.New("signature timestamp expired")
	ErrSignatureFuture     = errors.New("signature timestamp is in the future")
	ErrReplayed            = errors.New("proof nonce already used")
)

// Action identifies the operation a proof authorizes.
type Action struct {
	Wallet types.Identity // custody account the operation targets
	Op     string         // "sign", "deposit", "withdraw"
	Args   []string       // canonical argument rendering, in order
}

// Message returns the canonical text that is signed for this action.
func (a Action) Message(nonce string, timestamp int64) string {
	return fmt.Sprintf("rwallet:%s:%s:%s:%s:%d",
		a.Wallet.Hex(), a.Op, strings.Join(a.Args, ","), nonce, timestamp)
}

// Proof is the evidence a caller presents for an Action.
type Proof struct {
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature"`
}

// IsZero reports whether no proof was supplied.
func (p Proof) IsZero() bool {
	return p.Nonce == "" && p.Timestamp == 0 && len(p.Signature) == 0
}

// Verifier decides whether id authorized action.
type Verifier interface {
	Verify(ctx context.Context, id types.Identity, action Action, proof Proof) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, id types.Identity, action Action, proof Proof) error

func (f VerifierFunc) Verify(ctx context.Context, id types.Identity, action Action, proof Proof) error {
	return f(ctx, id, action, proof)
}

// AllowAll accepts every request. Tests and trusted local tooling only.
type AllowAll struct{}

func (AllowAll) Verify(context.Context, types.Identity, Action, Proof) error { return nil }

func unauthorized(id types.Identity, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnauthorized, id.Hex(), cause)
}
