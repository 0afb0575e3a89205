package auth

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/types"
)

// DefaultTolerance is the allowed drift between a proof's timestamp and
// ledger time.
const DefaultTolerance = 5 * time.Minute

// SignatureVerifier checks secp256k1 signatures over Action.Message.
// Nonces are remembered for twice the tolerance so a captured proof cannot be
// replayed against the same verifier.
type SignatureVerifier struct {
	clock     clock.Clock
	tolerance time.Duration

	mu   sync.Mutex
	seen map[string]uint64 // nonce -> expiry (ledger seconds)
}

// NewSignatureVerifier returns a verifier that checks timestamps against c.
// A non-positive tolerance selects DefaultTolerance.
func NewSignatureVerifier(c clock.Clock, tolerance time.Duration) *SignatureVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &SignatureVerifier{clock: c, tolerance: tolerance, seen: make(map[string]uint64)}
}

// Verify recovers the signer of proof and checks it equals id.
func (v *SignatureVerifier) Verify(_ context.Context, id types.Identity, action Action, proof Proof) error {
	if proof.IsZero() {
		return unauthorized(id, ErrMissingProof)
	}
	if len(proof.Signature) != crypto.SignatureLength {
		return unauthorized(id, ErrInvalidSignatureLen)
	}

	now := int64(v.clock.Now())
	tol := int64(v.tolerance / time.Second)
	if proof.Timestamp < now-tol {
		return unauthorized(id, ErrSignatureExpired)
	}
	if proof.Timestamp > now+tol {
		return unauthorized(id, ErrSignatureFuture)
	}

	sig := make([]byte, len(proof.Signature))
	copy(sig, proof.Signature)
	// Accept both raw (0/1) and Ethereum-style (27/28) recovery ids.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(action.Message(proof.Nonce, proof.Timestamp)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return unauthorized(id, ErrInvalidSignature)
	}
	if crypto.PubkeyToAddress(*pub) != id {
		return unauthorized(id, ErrAddressMismatch)
	}

	if !v.remember(proof.Nonce, uint64(now+2*tol)) {
		return unauthorized(id, ErrReplayed)
	}
	return nil
}

// remember records nonce and reports whether it was fresh.
func (v *SignatureVerifier) remember(nonce string, expiry uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.clock.Now()
	for n, exp := range v.seen {
		if exp <= now {
			delete(v.seen, n)
		}
	}
	if _, dup := v.seen[nonce]; dup {
		return false
	}
	v.seen[nonce] = expiry
	return true
}

// Sign produces a Proof for action using key, timestamped at now.
func Sign(key *ecdsa.PrivateKey, action Action, now uint64) (Proof, error) {
	p := Proof{Nonce: uuid.NewString(), Timestamp: int64(now)}
	hash := accounts.TextHash([]byte(action.Message(p.Nonce, p.Timestamp)))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return Proof{}, err
	}
	p.Signature = sig
	return p, nil
}
