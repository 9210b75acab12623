package types

import "errors"

// Store is the durable row store behind the dataset. Rows are keyed by
// entity name; the column set only ever grows. Callers attach to a backend,
// read or write the whole matrix, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist and seeds an empty store.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, Load and Save return ErrStoreDetached.
	Detach() error

	// Load returns the full attribute matrix in stored row and column order.
	// Cells are coerced to 0 or 1; missing cells read as 0.
	Load() (*Matrix, error)

	// Save replaces the stored matrix with m. Save is all-or-nothing: on
	// error the previously stored matrix is still what Load returns after
	// the next Attach.
	Save(m *Matrix) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
