package wallet

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/asset"
	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/sqlite"
	"github.com/steveyegge/rwallet/internal/types"
)

var depositor = types.Identity{0xd0}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	bal, err := f.w.Balance(context.Background())
	require.NoError(t, err)
	return bal
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 100))

	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, 60, noProof))
	assert.Equal(t, int64(60), f.balance(t))
	assert.Equal(t, int64(60), f.ledger.BalanceOf(testAsset, self))
	assert.Equal(t, int64(40), f.ledger.BalanceOf(testAsset, depositor))

	require.NoError(t, f.w.Withdraw(ctx, testAsset, 25, noProof))
	assert.Equal(t, int64(35), f.balance(t))
	assert.Equal(t, int64(25), f.ledger.BalanceOf(testAsset, owner))

	err := f.w.Withdraw(ctx, testAsset, 36, noProof)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 8, Code(err))
	assert.Equal(t, int64(35), f.balance(t))

	require.NoError(t, f.w.Withdraw(ctx, testAsset, 35, noProof))
	assert.Zero(t, f.balance(t))

	events := f.events.Events()
	require.Len(t, events, 3)
	var p eventbus.CustodyPayload
	require.NoError(t, events[0].DecodePayload(&p))
	assert.Equal(t, eventbus.CustodyPayload{Counterparty: depositor.Hex(), Asset: testAsset, Amount: 60, Balance: 60}, p)
	require.NoError(t, events[2].DecodePayload(&p))
	assert.Equal(t, eventbus.CustodyPayload{Counterparty: owner.Hex(), Asset: testAsset, Amount: 35, Balance: 0}, p)
}

func TestDepositExternalInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 10))

	err := f.w.Deposit(ctx, depositor, testAsset, 11, noProof)
	assert.ErrorIs(t, err, asset.ErrInsufficientBalance)
	assert.Zero(t, f.balance(t))
	assert.Empty(t, f.events.Events())

	// The failed deposit did not pin the custody asset.
	require.NoError(t, f.ledger.Mint("eur", depositor, 5))
	require.NoError(t, f.w.Deposit(ctx, depositor, "eur", 5, noProof))
}

func TestCustodyValidation(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 100))
	require.NoError(t, f.ledger.Mint("eur", depositor, 100))
	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, 10, noProof))

	assert.ErrorIs(t, f.w.Deposit(ctx, depositor, testAsset, 0, noProof), ErrInvalidAmount)
	assert.ErrorIs(t, f.w.Deposit(ctx, depositor, testAsset, -5, noProof), ErrInvalidAmount)
	assert.ErrorIs(t, f.w.Deposit(ctx, depositor, "not an asset", 5, noProof), asset.ErrInvalidAsset)
	assert.ErrorIs(t, f.w.Deposit(ctx, depositor, "eur", 5, noProof), ErrAssetMismatch)
	assert.ErrorIs(t, f.w.Withdraw(ctx, testAsset, 0, noProof), ErrInvalidAmount)
	assert.ErrorIs(t, f.w.Withdraw(ctx, "eur", 5, noProof), ErrAssetMismatch)

	assert.Equal(t, int64(10), f.balance(t))
	cfg, err := f.w.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAsset, cfg.CustodyAsset)
}

func TestDepositOverflow(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, math.MaxInt64))
	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, math.MaxInt64-1, noProof))

	err := f.w.Deposit(ctx, depositor, testAsset, 2, noProof)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(math.MaxInt64-1), f.balance(t))
}

func TestCustodyWithoutTransferer(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, withTransferer(nil))
	assert.ErrorIs(t, f.w.Deposit(ctx, depositor, testAsset, 5, noProof), errNoTransferer)
	assert.Zero(t, f.balance(t))
}

func TestBalanceConservation(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 1000))

	ops := []struct {
		deposit bool
		amount  int64
	}{
		{true, 100}, {false, 30}, {true, 5}, {false, 200}, {false, 75}, {true, 1}, {false, 1},
	}
	var deposited, withdrawn int64
	for _, op := range ops {
		var err error
		if op.deposit {
			err = f.w.Deposit(ctx, depositor, testAsset, op.amount, noProof)
			if err == nil {
				deposited += op.amount
			}
		} else {
			err = f.w.Withdraw(ctx, testAsset, op.amount, noProof)
			if err == nil {
				withdrawn += op.amount
			}
		}
		bal := f.balance(t)
		assert.GreaterOrEqual(t, bal, int64(0))
		assert.Equal(t, deposited-withdrawn, bal)
		assert.Equal(t, bal, f.ledger.BalanceOf(testAsset, self))
	}
	assert.Equal(t, int64(106), deposited)
	assert.Equal(t, int64(106), withdrawn)
}

func TestWithdrawAuthorizedByCurrentOwner(t *testing.T) {
	ctx := context.Background()
	var asked []types.Identity
	verifier := auth.VerifierFunc(func(_ context.Context, id types.Identity, a auth.Action, _ auth.Proof) error {
		if a.Op == "withdraw" {
			asked = append(asked, id)
		}
		return nil
	})
	f := initialized(t, withVerifier(verifier))
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 10))
	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, 10, noProof))

	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	require.NoError(t, f.w.Withdraw(ctx, testAsset, 1, noProof))
	require.NoError(t, f.w.Sign(ctx, r3, noProof))

	// The recovery completes inside this call, so the new owner authorizes
	// and receives the funds.
	require.NoError(t, f.w.Withdraw(ctx, testAsset, 2, noProof))
	assert.Equal(t, []types.Identity{owner, newOwner}, asked)
	assert.Equal(t, int64(1), f.ledger.BalanceOf(testAsset, owner))
	assert.Equal(t, int64(2), f.ledger.BalanceOf(testAsset, newOwner))
	assert.Equal(t, newOwner, f.owner(t))

	assert.Equal(t, []eventbus.EventType{
		eventbus.EventRecovery,
		eventbus.EventSigned,
		eventbus.EventWithdrawn,
		eventbus.EventSigned,
		eventbus.EventOwnerChanged,
		eventbus.EventWithdrawn,
	}, f.events.Types()[1:])
}

func TestDepositDoesNotAdvanceRecovery(t *testing.T) {
	ctx := context.Background()
	f := initialized(t)
	require.NoError(t, f.ledger.Mint(testAsset, depositor, 10))
	require.NoError(t, f.w.Recover(ctx, newOwner))
	f.clock.Set(scenarioEnd)

	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, 10, noProof))
	assert.True(t, f.recovery(t).Active())
}

func TestStoreLedgerJoinsWalletTransaction(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ledger := asset.NewStoreLedger(store)
	f := initialized(t, withStore(store), withTransferer(ledger))
	require.NoError(t, ledger.Mint(ctx, testAsset, depositor, 50))

	require.NoError(t, f.w.Deposit(ctx, depositor, testAsset, 50, noProof))
	got, err := ledger.BalanceOf(ctx, testAsset, self)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got)

	// Insufficient funds is checked before the transfer, and a failing
	// transfer rolls back the balance write in the same transaction.
	assert.ErrorIs(t, f.w.Withdraw(ctx, testAsset, 51, noProof), ErrInsufficientFunds)
	require.NoError(t, storage.SetJSON(ctx, store, storage.Key("ledger/"+testAsset+"/"+self.Hex()), int64(0)))
	assert.ErrorIs(t, f.w.Withdraw(ctx, testAsset, 10, noProof), asset.ErrInsufficientBalance)
	assert.Equal(t, int64(50), f.balance(t))
}

func TestWalletOnSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wallet.db")
	store, err := sqlite.New(ctx, path)
	require.NoError(t, err)

	f := initialized(t, withStore(store))
	require.NoError(t, f.w.Recover(ctx, newOwner))
	require.NoError(t, f.w.Sign(ctx, r1, noProof))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	w, err := New(Options{Store: reopened, Verifier: auth.AllowAll{}, Self: self, Clock: clock.NewManual(midpoint)})
	require.NoError(t, err)

	rec, err := w.Recovery(ctx)
	require.NoError(t, err)
	assert.Equal(t, newOwner, rec.ProposedOwner())
	assert.Equal(t, []types.Identity{r1}, rec.Signatures())
	require.NoError(t, w.Sign(ctx, r2, noProof))
	phase, err := w.RecoveryState(ctx)
	require.NoError(t, err)
	assert.Equal(t, CompletedAndReset, phase)
}
