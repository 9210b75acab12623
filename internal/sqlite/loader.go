// This file loads the JSONL data files into SQLite at attach time.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// loadAllJSONL reads attributes.jsonl then entities.jsonl into SQLite.
// Loading is transactional: all succeed or the database stays empty.
// Malformed lines, blank names and repeated names are skipped (first line
// wins). Attribute keys that appear only in entities.jsonl are appended as
// new columns. Unknown JSON fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	attrs, err := readJSONL[attributeJSON](filepath.Join(dataDir, attributesJSONL))
	if err != nil {
		return fmt.Errorf("reading %s: %w", attributesJSONL, err)
	}
	if err := loadAttributes(tx, attrs); err != nil {
		return fmt.Errorf("loading %s: %w", attributesJSONL, err)
	}

	ents, err := readJSONL[entityJSON](filepath.Join(dataDir, entitiesJSONL))
	if err != nil {
		return fmt.Errorf("reading %s: %w", entitiesJSONL, err)
	}
	if err := loadEntities(tx, ents); err != nil {
		return fmt.Errorf("loading %s: %w", entitiesJSONL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// loadAttributes assigns ordinals by line order.
func loadAttributes(tx *sql.Tx, records []attributeJSON) error {
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO attributes (name, ordinal) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing attribute insert: %w", err)
	}
	defer stmt.Close()

	ordinal := 0
	for _, a := range records {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		res, err := stmt.Exec(name, ordinal)
		if err != nil {
			return fmt.Errorf("inserting attribute %s: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			ordinal++
		}
	}
	return nil
}

func loadEntities(tx *sql.Tx, records []entityJSON) error {
	insertEntity, err := tx.Prepare("INSERT OR IGNORE INTO entities (entity_key, name, ordinal) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer insertEntity.Close()

	ensureAttribute, err := tx.Prepare(
		"INSERT OR IGNORE INTO attributes (name, ordinal) VALUES (?, (SELECT COALESCE(MAX(ordinal) + 1, 0) FROM attributes))",
	)
	if err != nil {
		return fmt.Errorf("preparing attribute insert: %w", err)
	}
	defer ensureAttribute.Close()

	insertValue, err := tx.Prepare("INSERT OR IGNORE INTO entity_values (entity_key, attribute, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing value insert: %w", err)
	}
	defer insertValue.Close()

	ordinal := 0
	for _, e := range records {
		name := types.CleanName(e.Name)
		if name == "" {
			continue
		}
		key := types.NormalizeName(name)
		res, err := insertEntity.Exec(key, name, ordinal)
		if err != nil {
			return fmt.Errorf("inserting entity %s: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		ordinal++

		attrs := make([]string, 0, len(e.Attributes))
		for a := range e.Attributes {
			if strings.TrimSpace(a) != "" {
				attrs = append(attrs, a)
			}
		}
		slices.Sort(attrs)
		for _, a := range attrs {
			attr := strings.TrimSpace(a)
			if _, err := ensureAttribute.Exec(attr); err != nil {
				return fmt.Errorf("adding attribute %s: %w", attr, err)
			}
			if _, err := insertValue.Exec(key, attr, coerceCell(e.Attributes[a])); err != nil {
				return fmt.Errorf("inserting %s.%s: %w", name, attr, err)
			}
		}
	}
	return nil
}

// coerceCell maps a decoded JSON value to 0 or 1: nonzero numbers, true and
// the strings "1", "true" and "yes" are 1; everything else is 0.
func coerceCell(v any) uint8 {
	switch x := v.(type) {
	case float64:
		if x != 0 {
			return 1
		}
	case bool:
		if x {
			return 1
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes":
			return 1
		}
	}
	return 0
}
