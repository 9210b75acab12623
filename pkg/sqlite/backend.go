// Package sqlite is the public entry point to the SQLite dataset backend.
package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/twentyq/internal/sqlite"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// NewBackend returns a detached SQLite store.
func NewBackend() types.Store {
	return sqlite.NewBackend()
}

// Open returns a store already attached to cfg.DataDir. The first Open of
// an empty directory seeds the built-in animals.
//
//	store, err := sqlite.Open(types.Config{Backend: types.BackendSQLite, DataDir: dir})
//	if err != nil {
//		return err
//	}
//	defer store.Detach()
func Open(cfg types.Config) (types.Store, error) {
	if cfg.Backend != types.BackendSQLite {
		return nil, fmt.Errorf("opening %q store: %w", cfg.Backend, types.ErrBackendUnknown)
	}
	store := sqlite.NewBackend()
	if err := store.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attaching store at %s: %w", cfg.DataDir, err)
	}
	return store, nil
}
