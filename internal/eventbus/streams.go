package eventbus

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	// StreamWalletEvents is the JetStream stream for wallet events.
	StreamWalletEvents = "WALLET_EVENTS"

	// SubjectWalletPrefix is the subject prefix for all wallet events.
	SubjectWalletPrefix = "wallet."
)

// SubjectForEvent returns the NATS subject for a given event type.
// Format: wallet.<event_type> (e.g., wallet.Recovery, wallet.Signed).
func SubjectForEvent(eventType EventType) string {
	return SubjectWalletPrefix + string(eventType)
}

// EnsureStreams creates the wallet event stream if it does not exist.
func EnsureStreams(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamWalletEvents)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("lookup %s stream: %w", StreamWalletEvents, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamWalletEvents,
		Subjects: []string{SubjectWalletPrefix + ">"},
		Storage:  nats.FileStorage,
		// Retain last 10000 messages or 100MB, whichever comes first.
		MaxMsgs:  10000,
		MaxBytes: 100 << 20,
	})
	if err != nil {
		return fmt.Errorf("create %s stream: %w", StreamWalletEvents, err)
	}
	return nil
}

// Connect dials url, ensures the wallet stream exists and returns the
// connection with its JetStream context. The caller closes the connection.
func Connect(url string) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url, nats.Name("rw"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("get JetStream context: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}
