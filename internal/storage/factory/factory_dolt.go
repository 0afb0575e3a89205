package factory

import (
	"context"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/dolt"
)

func init() {
	RegisterBackend(BackendDolt, func(ctx context.Context, path string, opts Options) (storage.Store, error) {
		return dolt.New(ctx, &dolt.Config{
			Path:           path,
			Database:       opts.Database,
			AutoCommit:     opts.AutoCommit,
			ServerMode:     opts.ServerMode,
			ServerHost:     opts.ServerHost,
			ServerPort:     opts.ServerPort,
			ServerUser:     opts.ServerUser,
			ServerPassword: opts.ServerPassword,
		})
	})
}
