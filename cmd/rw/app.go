package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"

	"github.com/steveyegge/rwallet/internal/asset"
	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/clock"
	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/debug"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/lockfile"
	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/factory"
	"github.com/steveyegge/rwallet/internal/telemetry"
	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/wallet"
)

// errNoWalletDir is reported when a command runs outside any wallet.
var errNoWalletDir = errors.New("no .rwallet directory found")

// errNoWalletAddress is reported when config carries no wallet.address.
var errNoWalletAddress = errors.New("wallet.address is not configured")

// walletApp bundles everything one rw invocation needs to run wallet
// operations: the store, the dev ledger sharing it, and the event bus.
type walletApp struct {
	dir     string
	store   storage.Store
	ledger  *asset.StoreLedger
	wallet  *wallet.Wallet
	bus     *eventbus.Bus
	events  *eventbus.Recorder
	metrics *telemetry.WalletMetrics
	nc      *nats.Conn
}

// openApp opens the wallet in the discovered .rwallet directory. With
// create set the directory is made if missing, as for `rw init`.
func openApp(ctx context.Context, create bool) (*walletApp, error) {
	dir := config.FindWalletDir()
	if dir == "" {
		if !create {
			return nil, errNoWalletDir
		}
		dir = config.WalletDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create wallet directory: %w", err)
	}

	self, err := configuredAddress()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, dir)
	if err != nil {
		return nil, err
	}
	store = telemetry.WrapStore(store)

	a := &walletApp{
		dir:     dir,
		store:   store,
		ledger:  asset.NewStoreLedger(store),
		bus:     eventbus.New(),
		events:  &eventbus.Recorder{},
		metrics: telemetry.NewWalletMetrics(),
	}
	a.bus.Register(a.events)
	a.bus.Register(&eventbus.AuditHandler{Dir: dir})
	a.bus.Register(a.metrics)
	if debug.Enabled() {
		a.bus.Register(&eventbus.DebugHandler{})
	}
	if url := config.GetString("nats.url"); url != "" {
		nc, js, err := eventbus.Connect(url)
		if err != nil {
			WarnError("events will not be published: %v", err)
		} else {
			a.nc = nc
			a.bus.SetJetStream(js)
		}
	}

	a.wallet, err = wallet.New(wallet.Options{
		Store:      store,
		Verifier:   newVerifier(),
		Self:       self,
		Transferer: a.ledger,
		Clock:      clock.System{},
		Events:     a.bus,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// openStore opens the configured backend. --db wins over the backend's
// default location inside dir.
func openStore(ctx context.Context, dir string) (storage.Store, error) {
	backend := config.GetString("backend")
	path := dbPath
	if path == "" {
		switch backend {
		case factory.BackendDolt:
			path = filepath.Join(dir, "dolt")
		default:
			path = filepath.Join(dir, "wallet.db")
		}
	}
	debug.Logf("opening %s store at %s\n", backend, path)
	return factory.NewWithOptions(ctx, backend, path, factory.Options{
		ServerMode:     config.GetBool("dolt.server-mode"),
		ServerHost:     config.GetString("dolt.host"),
		ServerPort:     config.GetInt("dolt.port"),
		ServerUser:     config.GetString("dolt.user"),
		ServerPassword: os.Getenv("RW_DOLT_PASSWORD"),
		Database:       config.GetString("dolt.database"),
		AutoCommit:     config.GetBool("dolt.auto-commit"),
	})
}

func configuredAddress() (types.Identity, error) {
	raw := config.GetString("wallet.address")
	if raw == "" {
		return types.ZeroIdentity, errNoWalletAddress
	}
	return types.ParseIdentity(raw)
}

// newVerifier returns the signature verifier, or AllowAll when auth.verify
// is off (local experiments only).
func newVerifier() auth.Verifier {
	if !config.GetBool("auth.verify") {
		debug.Logf("auth.verify is off: proofs are not checked\n")
		return auth.AllowAll{}
	}
	return auth.NewSignatureVerifier(clock.System{}, config.GetDuration("auth.tolerance"))
}

func (a *walletApp) Close() error {
	if a.nc != nil {
		_ = a.nc.Drain()
		a.nc = nil
	}
	return a.store.Close()
}

// run executes one wallet operation under the cross-process wallet lock and
// records it in metrics. Mutating operations take the lock exclusively.
func (a *walletApp) run(op string, exclusive bool, fn func(ctx context.Context) error) error {
	ctx := rootCtx
	with := lockfile.WithShared
	if exclusive {
		with = lockfile.WithExclusive
	}
	err := with(ctx, a.dir, lockTimeout, func() error { return fn(ctx) })
	a.metrics.RecordOperation(ctx, op, wallet.Code(err))
	return err
}

// emitted returns the events this invocation produced, for --json output.
func (a *walletApp) emitted() []eventbus.Event {
	return a.events.Events()
}
