// This file seeds the built-in dataset on first attach.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
)

// seedIfEmpty writes the built-in dataset when no attributes and no
// entities were loaded. A store that has been emptied on purpose keeps its
// attributes and is not reseeded.
func seedIfEmpty(db *sql.DB, dataDir string) error {
	var count int
	err := db.QueryRow("SELECT (SELECT COUNT(*) FROM attributes) + (SELECT COUNT(*) FROM entities)").Scan(&count)
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}
	if count > 0 {
		return nil
	}
	return saveMatrix(db, dataDir, dataset.Seed())
}
