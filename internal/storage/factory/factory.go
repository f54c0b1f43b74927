// Package factory creates storage backends based on configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/storage/memory"
	"github.com/steveyegge/onboardbuddy/internal/storage/sqlstore"
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
)

// BackendFactory creates a storage backend.
type BackendFactory func(ctx context.Context, opts Options) (storage.Store, error)

var backendRegistry = map[string]BackendFactory{
	BackendMemory: func(context.Context, Options) (storage.Store, error) {
		return memory.New(), nil
	},
	BackendSQLite: func(ctx context.Context, opts Options) (storage.Store, error) {
		return sqlstore.OpenSQLite(ctx, opts.Path)
	},
	BackendDolt: func(ctx context.Context, opts Options) (storage.Store, error) {
		return sqlstore.OpenServer(ctx, opts.Server)
	},
}

// RegisterBackend registers (or replaces) a storage backend factory.
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// Options configures how the storage backend is opened.
type Options struct {
	Path   string                 // SQLite database file
	Server sqlstore.ServerConfig // Dolt sql-server connection
}

// New creates a storage backend by name. An empty name selects memory.
func New(ctx context.Context, backend string, opts Options) (storage.Store, error) {
	if backend == "" {
		backend = BackendMemory
	}
	factory, ok := backendRegistry[backend]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, dolt)", backend)
	}
	return factory(ctx, opts)
}
