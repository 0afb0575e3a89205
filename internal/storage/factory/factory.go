// Package factory provides functions for creating storage backends based on configuration.
package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/memory"
	"github.com/steveyegge/rwallet/internal/storage/sqlite"
)

// Backend names accepted by New and the "backend" config key.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendDolt   = "dolt"
)

// BackendFactory is a function that creates a storage backend
type BackendFactory func(ctx context.Context, path string, opts Options) (storage.Store, error)

// backendRegistry holds registered backend factories
var backendRegistry = make(map[string]BackendFactory)

// RegisterBackend registers a storage backend factory
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures how the storage backend is opened
type Options struct {
	// Dolt options
	ServerMode     bool
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
	Database       string
	AutoCommit     bool
}

func init() {
	RegisterBackend(BackendSQLite, func(ctx context.Context, path string, _ Options) (storage.Store, error) {
		return sqlite.New(ctx, path)
	})
	RegisterBackend(BackendMemory, func(context.Context, string, Options) (storage.Store, error) {
		return memory.New(), nil
	})
}

// New creates a storage backend with default options.
func New(ctx context.Context, backend, path string) (storage.Store, error) {
	return NewWithOptions(ctx, backend, path, Options{})
}

// NewWithOptions creates a storage backend with the specified options.
// An empty backend means sqlite.
func NewWithOptions(ctx context.Context, backend, path string, opts Options) (storage.Store, error) {
	if backend == "" {
		backend = BackendSQLite
	}
	if factory, ok := backendRegistry[backend]; ok {
		return factory(ctx, path, opts)
	}
	return nil, fmt.Errorf("unknown storage backend: %s (supported: %s)", backend, strings.Join(Backends(), ", "))
}
