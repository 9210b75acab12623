// Package sqlite implements the dataset storage backend. SQLite is the query
// engine and the JSONL files in DataDir are the source of truth: every
// Attach rebuilds the database from them, and every Save rewrites them.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Backend implements types.Store on SQLite plus JSONL files.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

var _ types.Store = (*Backend)(nil)

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite database from
// the JSONL files, and seeds the built-in dataset when both are empty.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache of the JSONL files; start from a fresh schema.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := recoverStaged(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}
	if err := seedIfEmpty(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("seeding dataset: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// Detach closes the SQLite connection. After Detach, Load and Save return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Load reads the full matrix in stored column and row order.
func (b *Backend) Load() (*types.Matrix, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return queryMatrix(b.db)
}

// Save replaces the stored matrix. The SQLite rows and both JSONL files are
// rewritten inside one transaction; if any file write fails the transaction
// is rolled back.
func (b *Backend) Save(m *types.Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return saveMatrix(b.db, b.dataDir, m)
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// queryMatrix builds a Matrix from the database. Cells with no row in
// entity_values read as 0.
func queryMatrix(db *sql.DB) (*types.Matrix, error) {
	var columns []string
	rows, err := db.Query("SELECT name FROM attributes ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("querying attributes: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		columns = append(columns, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m, err := types.NewMatrix(columns)
	if err != nil {
		return nil, err
	}

	values := make(map[string]map[string]uint8)
	rows, err = db.Query("SELECT entity_key, attribute, value FROM entity_values")
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	for rows.Next() {
		var key, attr string
		var v int
		if err := rows.Scan(&key, &attr, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		if values[key] == nil {
			values[key] = make(map[string]uint8)
		}
		values[key][attr] = uint8(v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query("SELECT entity_key, name FROM entities ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, name string
		if err := rows.Scan(&key, &name); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		if err := m.Append(name, values[key]); err != nil {
			return nil, fmt.Errorf("entity %s: %w", name, err)
		}
	}
	return m, rows.Err()
}

// saveMatrix rewrites every table and both JSONL files. Both files are
// staged before the transaction commits; a failure up to the commit point
// leaves the published files and the database as they were.
func saveMatrix(db *sql.DB, dataDir string, m *types.Matrix) error {
	if err := recoverStaged(dataDir); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM entity_values", "DELETE FROM entities", "DELETE FROM attributes"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clearing tables: %w", err)
		}
	}

	columns := m.Columns()
	attrRecords := make([]attributeJSON, 0, len(columns))
	for j, c := range columns {
		if _, err := tx.Exec("INSERT INTO attributes (name, ordinal) VALUES (?, ?)", c, j); err != nil {
			return fmt.Errorf("inserting attribute %s: %w", c, err)
		}
		attrRecords = append(attrRecords, attributeJSON{Name: c, Ordinal: j})
	}

	insertValue, err := tx.Prepare("INSERT INTO entity_values (entity_key, attribute, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing value insert: %w", err)
	}
	defer insertValue.Close()

	entityRecords := make([]entityJSON, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		name := m.Name(i)
		key := types.NormalizeName(name)
		if _, err := tx.Exec("INSERT INTO entities (entity_key, name, ordinal) VALUES (?, ?, ?)", key, name, i); err != nil {
			return fmt.Errorf("inserting entity %s: %w", name, err)
		}
		attrs := make(map[string]any, len(columns))
		for j, c := range columns {
			v := m.Cell(i, j)
			if _, err := insertValue.Exec(key, c, v); err != nil {
				return fmt.Errorf("inserting %s.%s: %w", name, c, err)
			}
			attrs[c] = v
		}
		entityRecords = append(entityRecords, entityJSON{Name: name, Attributes: attrs})
	}

	if err := stageSave(dataDir, attrRecords, entityRecords); err != nil {
		return fmt.Errorf("persisting dataset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		discardStaged(dataDir)
		return fmt.Errorf("committing save transaction: %w", err)
	}
	// The marker makes the save durable; a rename that fails here is
	// retried by the next Save or Attach.
	_ = publishStaged(dataDir)
	return nil
}
