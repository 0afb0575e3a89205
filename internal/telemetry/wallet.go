package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/rwallet/internal/eventbus"
)

const walletScopeName = "github.com/steveyegge/rwallet/wallet"

// WalletMetrics counts wallet operations and terminal recovery transitions.
// It doubles as an event bus handler so transitions are counted from the
// events the wallet emits after commit.
type WalletMetrics struct {
	ops       metric.Int64Counter
	completed metric.Int64Counter
	expired   metric.Int64Counter
	custody   metric.Int64Counter
}

var _ eventbus.Handler = (*WalletMetrics)(nil)

// NewWalletMetrics registers the wallet instruments on the global meter.
// With telemetry disabled the instruments are no-ops.
func NewWalletMetrics() *WalletMetrics {
	m := Meter(walletScopeName)
	ops, _ := m.Int64Counter("rw.wallet.operations",
		metric.WithDescription("Wallet operations by name and outcome"),
	)
	completed, _ := m.Int64Counter("rw.recovery.completed",
		metric.WithDescription("Recoveries that reached threshold and changed the owner"),
	)
	expired, _ := m.Int64Counter("rw.recovery.expired",
		metric.WithDescription("Recoveries whose window closed below threshold"),
	)
	custody, _ := m.Int64Counter("rw.custody.amount",
		metric.WithDescription("Asset units moved in or out of custody"),
	)
	return &WalletMetrics{ops: ops, completed: completed, expired: expired, custody: custody}
}

// RecordOperation counts one wallet operation. code is the wallet error code,
// 0 on success.
func (m *WalletMetrics) RecordOperation(ctx context.Context, op string, code int) {
	outcome := "ok"
	if code != 0 {
		outcome = "error"
	}
	m.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rw.op", op),
		attribute.String("rw.outcome", outcome),
		attribute.Int("rw.error.code", code),
	))
}

func (m *WalletMetrics) ID() string { return "metrics" }

func (m *WalletMetrics) Handles() []eventbus.EventType {
	return []eventbus.EventType{
		eventbus.EventOwnerChanged,
		eventbus.EventRecoveryExpired,
		eventbus.EventDeposited,
		eventbus.EventWithdrawn,
	}
}

func (m *WalletMetrics) Priority() int { return 60 }

func (m *WalletMetrics) Handle(ctx context.Context, event *eventbus.Event, _ *eventbus.Result) error {
	switch event.Type {
	case eventbus.EventOwnerChanged:
		m.completed.Add(ctx, 1)
	case eventbus.EventRecoveryExpired:
		m.expired.Add(ctx, 1)
	case eventbus.EventDeposited, eventbus.EventWithdrawn:
		var p eventbus.CustodyPayload
		if err := event.DecodePayload(&p); err != nil {
			return err
		}
		m.custody.Add(ctx, p.Amount, metric.WithAttributes(
			attribute.String("rw.asset", p.Asset),
			attribute.String("rw.direction", string(event.Type)),
		))
	}
	return nil
}
