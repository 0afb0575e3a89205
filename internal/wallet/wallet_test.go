package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/asset"
	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/memory"
	"github.com/steveyegge/rwallet/internal/types"
)

const (
	startTime   = 12345
	window      = 86400
	midpoint    = 55545
	scenarioEnd = 98745
	testAsset   = "usd"
)

var (
	self     = types.Identity{0xee}
	owner    = types.Identity{0x0f}
	newOwner = types.Identity{0x0a}
	r1       = types.Identity{0x01}
	r2       = types.Identity{0x02}
	r3       = types.Identity{0x03}
)

var noProof auth.Proof

type fixture struct {
	w      *Wallet
	store  storage.Store
	clock  *clock.Manual
	events *eventbus.Recorder
	ledger *asset.Ledger
}

type fixtureOption func(*Options)

func withStore(s storage.Store) fixtureOption { return func(o *Options) { o.Store = s } }

func withVerifier(v auth.Verifier) fixtureOption { return func(o *Options) { o.Verifier = v } }

func withTransferer(t asset.Transferer) fixtureOption {
	return func(o *Options) { o.Transferer = t }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		clock:  clock.NewManual(startTime),
		events: &eventbus.Recorder{},
		ledger: asset.NewLedger(),
	}
	bus := eventbus.New()
	bus.Register(f.events)

	o := Options{
		Store:      memory.New(),
		Verifier:   auth.AllowAll{},
		Self:       self,
		Transferer: f.ledger,
		Clock:      f.clock,
		Events:     bus,
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.store = o.Store

	w, err := New(o)
	require.NoError(t, err)
	f.w = w
	return f
}

// initialized returns a fixture with the standard three-address, 2-of-3
// wallet already configured.
func initialized(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	require.NoError(t, f.w.Init(context.Background(), InitParams{
		Owner:             owner,
		RecoveryAddresses: []types.Identity{r1, r2, r3},
		Threshold:         2,
		WindowSeconds:     window,
	}))
	f.events.Reset()
	return f
}

func (f *fixture) recovery(t *testing.T) Recovery {
	t.Helper()
	rec, err := f.w.Recovery(context.Background())
	require.NoError(t, err)
	return rec
}

func (f *fixture) owner(t *testing.T) types.Identity {
	t.Helper()
	o, err := f.w.Owner(context.Background())
	require.NoError(t, err)
	return o
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Verifier: auth.AllowAll{}, Self: self})
	assert.ErrorContains(t, err, "store is required")
	_, err = New(Options{Store: memory.New(), Self: self})
	assert.ErrorContains(t, err, "verifier is required")
	_, err = New(Options{Store: memory.New(), Verifier: auth.AllowAll{}})
	assert.ErrorContains(t, err, "self address is required")

	w, err := New(Options{Store: memory.New(), Verifier: auth.AllowAll{}, Self: self})
	require.NoError(t, err)
	assert.Equal(t, self, w.Self())
	assert.NotZero(t, w.LedgerTime())
}

func TestRecoveryScenario(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)

	require.NoError(t, f.w.Recover(ctx, newOwner))
	rec := f.recovery(t)
	require.True(t, rec.Active())
	assert.Equal(t, newOwner, rec.ProposedOwner())
	assert.Equal(t, uint64(scenarioEnd), rec.WindowEnd())
	assert.Zero(t, rec.SignatureCount())

	f.clock.Set(midpoint)
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	assert.Equal(t, uint32(1), f.recovery(t).SignatureCount())

	err := f.w.Sign(ctx, r1, noProof)
	assert.ErrorIs(t, err, ErrAlreadySigned)
	assert.Equal(t, uint32(1), f.recovery(t).SignatureCount())

	require.NoError(t, f.w.Sign(ctx, r2, noProof))
	assert.Equal(t, uint32(2), f.recovery(t).SignatureCount())
	// Threshold reached but not committed until the next evaluation.
	assert.Equal(t, owner, f.owner(t))

	phase, err := f.w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletedAndReset, phase)
	assert.Equal(t, newOwner, f.owner(t))
	assert.False(t, f.recovery(t).Active())

	phase, err = f.w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, NotInProgress, phase)
	assert.Equal(t, newOwner, f.owner(t))

	assert.Equal(t, []eventbus.EventType{
		eventbus.EventRecovery,
		eventbus.EventSigned,
		eventbus.EventSigned,
		eventbus.EventOwnerChanged,
	}, f.events.Types())
}

func TestEventsCarryPayloads(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r3, noProof))

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, self.Hex(), events[0].Wallet)
	assert.Equal(t, uint64(startTime), events[0].LedgerTime)
	assert.NotEmpty(t, events[0].ID)

	var rp eventbus.RecoveryPayload
	require.NoError(t, events[0].DecodePayload(&rp))
	assert.Equal(t, newOwner.Hex(), rp.ProposedOwner)
	assert.Equal(t, uint64(scenarioEnd), rp.WindowEnd)

	var sp eventbus.SignedPayload
	require.NoError(t, events[1].DecodePayload(&sp))
	assert.Equal(t, r3.Hex(), sp.Signer)
	assert.Equal(t, uint32(1), sp.SignatureCount)
}

func TestInit(t *testing.T) {
	zero := types.ZeroIdentity
	tests := []struct {
		name      string
		owner     types.Identity
		addrs     []types.Identity
		threshold uint32
		wantErr   error
	}{
		{"valid", owner, []types.Identity{r1, r2, r3}, 2, nil},
		{"threshold equals set size", owner, []types.Identity{r1, r2}, 2, nil},
		{"owner in recovery set", owner, []types.Identity{r1, owner}, 1, ErrInvalidRecoveryAddress},
		{"duplicate recovery address", owner, []types.Identity{r1, r2, r1}, 2, ErrInvalidRecoveryAddress},
		{"zero recovery address", owner, []types.Identity{r1, zero}, 1, ErrInvalidRecoveryAddress},
		{"zero threshold", owner, []types.Identity{r1, r2}, 0, ErrInvalidRecoveryThreshold},
		{"threshold above set size", owner, []types.Identity{r1, r2}, 3, ErrInvalidRecoveryThreshold},
		{"empty set", owner, nil, 1, ErrInvalidRecoveryThreshold},
		{"zero owner", zero, []types.Identity{r1}, 1, ErrInvalidOwnerAddress},
		// Address errors are reported before threshold errors.
		{"duplicate and bad threshold", owner, []types.Identity{r1, r1}, 5, ErrInvalidRecoveryAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			err := f.w.Init(ctx, InitParams{
				Owner:             tt.owner,
				RecoveryAddresses: tt.addrs,
				Threshold:         tt.threshold,
				WindowSeconds:     window,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				// State unchanged: still uninitialized.
				_, err := f.w.Owner(ctx)
				assert.ErrorIs(t, err, ErrNotInitialized)
				assert.Empty(t, f.events.Events())
				return
			}
			require.NoError(t, err)
			cfg, err := f.w.Config(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, cfg.Owner)
			assert.Equal(t, tt.addrs, cfg.RecoveryAddresses)
			assert.Equal(t, tt.threshold, cfg.Threshold)
			assert.Equal(t, uint64(window), cfg.WindowSeconds)
			n, err := f.w.RecoveryAddressCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint32(len(tt.addrs)), n)
			assert.False(t, f.recovery(t).Active())
			assert.Equal(t, []eventbus.EventType{eventbus.EventInit}, f.events.Types())
		})
	}
}

func TestInitRejectsReinitialization(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	err := f.w.Init(ctx, InitParams{Owner: newOwner, RecoveryAddresses: []types.Identity{r1}, Threshold: 1})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, 10, Code(err))
	assert.Equal(t, owner, f.owner(t))
}

func TestOperationsBeforeInit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.w.Recover(ctx, newOwner), ErrNotInitialized)
	assert.ErrorIs(t, f.w.Sign(ctx, r1, noProof), ErrNotInitialized)
	assert.ErrorIs(t, f.w.Deposit(ctx, r1, testAsset, 1, noProof), ErrNotInitialized)
	assert.ErrorIs(t, f.w.Withdraw(ctx, testAsset, 1, noProof), ErrNotInitialized)

	_, err := f.w.Owner(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.w.Recovery(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.w.RecoveryState(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.w.Status(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.w.Config(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.w.RecoveryAddressCount(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	bal, err := f.w.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal)
	assert.Equal(t, uint64(startTime), f.w.LedgerTime())
}

func TestRecoverInvalidNewOwner(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)

	assert.ErrorIs(t, f.w.Recover(ctx, owner), ErrInvalidNewOwnerAddress)
	assert.ErrorIs(t, f.w.Recover(ctx, r2), ErrInvalidNewOwnerAddress)
	assert.ErrorIs(t, f.w.Recover(ctx, types.ZeroIdentity), ErrInvalidNewOwnerAddress)
	assert.False(t, f.recovery(t).Active())
	assert.Empty(t, f.events.Events())
}

func TestRecoverWhileInProgress(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))

	other := types.Identity{0x0b}
	assert.ErrorIs(t, f.w.Recover(ctx, other), ErrRecoveryInProgress)
	assert.Equal(t, newOwner, f.recovery(t).ProposedOwner())
}

func TestRecoverSupersedesExpiredProposal(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))

	f.clock.Set(scenarioEnd)
	other := types.Identity{0x0b}
	require.NoError(t, f.w.Recover(ctx, other))

	rec := f.recovery(t)
	assert.Equal(t, other, rec.ProposedOwner())
	assert.Zero(t, rec.SignatureCount())
	assert.Equal(t, uint64(scenarioEnd+window), rec.WindowEnd())
	assert.Equal(t, owner, f.owner(t))
	assert.Equal(t, []eventbus.EventType{
		eventbus.EventRecovery,
		eventbus.EventSigned,
		eventbus.EventRecoveryExpired,
		eventbus.EventRecovery,
	}, f.events.Types())
}

func TestRecoverAfterCompletedRecoveryChecksNewOwner(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	require.NoError(t, f.w.Sign(ctx, r2, noProof))

	// The pending commit makes newOwner the owner, so proposing it again
	// is rejected and the whole call, commit included, rolls back.
	assert.ErrorIs(t, f.w.Recover(ctx, newOwner), ErrInvalidNewOwnerAddress)
	assert.Equal(t, owner, f.owner(t))
	assert.Equal(t, uint32(2), f.recovery(t).SignatureCount())

	// Proposing the old owner back commits the pending recovery first.
	require.NoError(t, f.w.Recover(ctx, owner))
	assert.Equal(t, newOwner, f.owner(t))
	assert.Equal(t, owner, f.recovery(t).ProposedOwner())
}

func TestZeroWindowIsImmediatelyEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.w.Init(ctx, InitParams{
		Owner: owner, RecoveryAddresses: []types.Identity{r1}, Threshold: 1,
	}))
	require.NoError(t, f.w.Recover(ctx, newOwner))

	assert.ErrorIs(t, f.w.Sign(ctx, r1, noProof), ErrSignatureThresholdAlreadyReached)
	phase, err := f.w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletedAndReset, phase)
	assert.Equal(t, owner, f.owner(t))
}

func TestSignErrors(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)

	assert.ErrorIs(t, f.w.Sign(ctx, r1, noProof), ErrRecoveryNotInProgress)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	assert.ErrorIs(t, f.w.Sign(ctx, newOwner, noProof), ErrInvalidRecoveryAddress)
	assert.ErrorIs(t, f.w.Sign(ctx, owner, noProof), ErrInvalidRecoveryAddress)
	assert.Zero(t, f.recovery(t).SignatureCount())
}

func TestLateSignatureRollsBackCollapse(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	require.NoError(t, f.w.Sign(ctx, r2, noProof))
	f.events.Reset()

	err := f.w.Sign(ctx, r3, noProof)
	assert.ErrorIs(t, err, ErrSignatureThresholdAlreadyReached)
	assert.Equal(t, 9, Code(err))

	rec := f.recovery(t)
	assert.True(t, rec.Active())
	assert.Equal(t, uint32(2), rec.SignatureCount())
	assert.Equal(t, owner, f.owner(t))
	assert.Empty(t, f.events.Events(), "no events from a rolled back call")
}

func TestWindowBoundaries(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		at   uint64
		want Phase
	}{
		{startTime, InProgress},
		{scenarioEnd - 1, InProgress},
		{scenarioEnd, CompletedAndReset},
		{scenarioEnd + 1000, CompletedAndReset},
	} {
		f := initialized(t)
		require.NoError(t, f.w.Recover(ctx, newOwner))
		require.NoError(t, f.w.Sign(ctx, r1, noProof))
		f.clock.Set(tc.at)

		st, err := f.w.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.want, st.Phase, "status at %d", tc.at)

		phase, err := f.w.RecoveryState(ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.want, phase, "recovery_state at %d", tc.at)
		// Below threshold the window never commits.
		assert.Equal(t, owner, f.owner(t))
	}
}

func TestSignAfterWindowExpired(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.w.Recover(ctx, newOwner))
	f.clock.Set(scenarioEnd)

	assert.ErrorIs(t, f.w.Sign(ctx, r1, noProof), ErrSignatureThresholdAlreadyReached)
	phase, err := f.w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletedAndReset, phase)
	assert.Equal(t, owner, f.owner(t))
	assert.Equal(t, []eventbus.EventType{eventbus.EventRecovery, eventbus.EventRecoveryExpired}, f.events.Types())
}

func TestQuorumMonotonicity(t *testing.T) {
	ctx := context.Background()
	addrs := []types.Identity{r1, r2, r3, {0x04}, {0x05}}
	for threshold := uint32(1); threshold <= uint32(len(addrs)); threshold++ {
		f := newFixture(t)
		require.NoError(t, f.w.Init(ctx, InitParams{
			Owner: owner, RecoveryAddresses: addrs, Threshold: threshold, WindowSeconds: window,
		}))
		require.NoError(t, f.w.Recover(ctx, newOwner))

		for k := uint32(1); k <= threshold; k++ {
			require.NoError(t, f.w.Sign(ctx, addrs[k-1], noProof))
			assert.Equal(t, k, f.recovery(t).SignatureCount())
			st, err := f.w.Status(ctx)
			require.NoError(t, err)
			if k < threshold {
				assert.Equal(t, InProgress, st.Phase)
				assert.Equal(t, owner, st.EffectiveOwner)
			} else {
				assert.Equal(t, CompletedAndReset, st.Phase)
				assert.True(t, st.WouldCommit)
				assert.Equal(t, newOwner, st.EffectiveOwner)
			}
		}
		phase, err := f.w.RecoveryState(ctx)
		require.NoError(t, err)
		assert.Equal(t, CompletedAndReset, phase)
		assert.Equal(t, newOwner, f.owner(t), "threshold %d", threshold)
	}
}

func TestStatusDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	f := initialized(t, withStore(mem))
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	require.NoError(t, f.w.Sign(ctx, r2, noProof))

	before := mem.Snapshot()
	for range 3 {
		st, err := f.w.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, CompletedAndReset, st.Phase)
		assert.Equal(t, owner, st.Owner)
	}
	assert.Equal(t, before, mem.Snapshot())
}

func TestAuthorizationFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	deny := auth.VerifierFunc(func(_ context.Context, id types.Identity, _ auth.Action, _ auth.Proof) error {
		if id == r1 {
			return auth.ErrUnauthorized
		}
		return nil
	})
	f := initialized(t, withVerifier(deny))
	require.NoError(t, f.w.Recover(ctx, newOwner))

	assert.ErrorIs(t, f.w.Sign(ctx, r1, noProof), auth.ErrUnauthorized)
	assert.Zero(t, f.recovery(t).SignatureCount())
	require.NoError(t, f.w.Sign(ctx, r2, noProof))
}

func TestSignRequiresProofBoundToProposal(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(startTime)
	keys := make([]types.Identity, 3)
	signers := make(map[types.Identity]func(auth.Action) auth.Proof)
	for i := range keys {
		key, err := auth.GenerateKey()
		require.NoError(t, err)
		keys[i] = auth.Address(key)
		signers[keys[i]] = func(a auth.Action) auth.Proof {
			p, err := auth.Sign(key, a, c.Now())
			require.NoError(t, err)
			return p
		}
	}

	store := memory.New()
	w, err := New(Options{
		Store:    store,
		Verifier: auth.NewSignatureVerifier(c, 0),
		Self:     self,
		Clock:    c,
	})
	require.NoError(t, err)
	require.NoError(t, w.Init(ctx, InitParams{
		Owner: owner, RecoveryAddresses: keys, Threshold: 2, WindowSeconds: window,
	}))
	require.NoError(t, w.Recover(ctx, newOwner))

	// A proof for a different proposal is rejected.
	stale := signers[keys[0]](SignAction(self, keys[0], types.Identity{0x0b}))
	assert.ErrorIs(t, w.Sign(ctx, keys[0], stale), auth.ErrUnauthorized)

	// Signing for another address is rejected.
	forged := signers[keys[0]](SignAction(self, keys[1], newOwner))
	assert.ErrorIs(t, w.Sign(ctx, keys[1], forged), auth.ErrUnauthorized)

	good := signers[keys[0]](SignAction(self, keys[0], newOwner))
	require.NoError(t, w.Sign(ctx, keys[0], good))

	// The same proof cannot be replayed.
	assert.ErrorIs(t, w.Sign(ctx, keys[0], good), auth.ErrReplayed)

	require.NoError(t, w.Sign(ctx, keys[1], signers[keys[1]](SignAction(self, keys[1], newOwner))))
	phase, err := w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletedAndReset, phase)
	got, err := w.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, newOwner, got)
}
