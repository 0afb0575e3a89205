package eventbus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerOptions configures an embedded NATS server.
type ServerOptions struct {
	Host     string // defaults to 127.0.0.1
	Port     int    // -1 picks a free port
	StoreDir string // JetStream file store
	Debug    bool
}

// StartServer runs an embedded NATS server with JetStream enabled and waits
// until it accepts connections. Callers stop it with Shutdown.
func StartServer(opts ServerOptions) (*server.Server, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	ns, err := server.NewServer(&server.Options{
		ServerName: "rw-embedded",
		Host:       opts.Host,
		Port:       opts.Port,
		JetStream:  true,
		StoreDir:   opts.StoreDir,
		NoLog:      !opts.Debug,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	if opts.Debug {
		ns.ConfigureLogger()
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server on %s:%d not ready after 10s", opts.Host, opts.Port)
	}
	return ns, nil
}
