package types

import (
	"fmt"
	"strings"
)

// Matrix is the attribute matrix: an ordered set of named binary columns and
// rows keyed by unique entity name. Row order is insertion order. Every cell
// is 0 or 1 and every row has a value for every column.
//
// A Matrix is not safe for concurrent mutation. Shared snapshots are treated
// as read-only; writers Clone first.
type Matrix struct {
	columns  []string
	colIndex map[string]int
	names    []string
	rowIndex map[string]int // keyed by NormalizeName
	cells    [][]uint8
}

// NormalizeName folds an entity name for duplicate detection: surrounding
// whitespace trimmed, inner runs collapsed, lower-cased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CleanName returns the display form of an entity name: whitespace trimmed
// and collapsed, case preserved.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NewMatrix returns an empty matrix with the given columns.
// Returns ErrInvalidName for an empty column and ErrDuplicateColumn for a repeat.
func NewMatrix(columns []string) (*Matrix, error) {
	m := &Matrix{
		colIndex: make(map[string]int, len(columns)),
		rowIndex: make(map[string]int),
	}
	for _, c := range columns {
		added, err := m.AddColumn(c)
		if err != nil {
			return nil, err
		}
		if !added {
			return nil, fmt.Errorf("column %q: %w", c, ErrDuplicateColumn)
		}
	}
	return m, nil
}

// Columns returns a copy of the column names in order.
func (m *Matrix) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

// NumColumns returns the number of attribute columns.
func (m *Matrix) NumColumns() int { return len(m.columns) }

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.names) }

// Names returns a copy of the entity names in row order.
func (m *Matrix) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Name returns the entity name of row i.
func (m *Matrix) Name(i int) string { return m.names[i] }

// Cell returns the value at row i, column j.
func (m *Matrix) Cell(i, j int) uint8 { return m.cells[i][j] }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []uint8 {
	out := make([]uint8, len(m.cells[i]))
	copy(out, m.cells[i])
	return out
}

// HasColumn reports whether the attribute column exists.
func (m *Matrix) HasColumn(name string) bool {
	_, ok := m.colIndex[name]
	return ok
}

// ColumnIndex returns the position of a column.
func (m *Matrix) ColumnIndex(name string) (int, bool) {
	j, ok := m.colIndex[name]
	return j, ok
}

// Index returns the row of an entity, matching names after normalization.
func (m *Matrix) Index(name string) (int, bool) {
	i, ok := m.rowIndex[NormalizeName(name)]
	return i, ok
}

// Has reports whether an entity with this name exists.
func (m *Matrix) Has(name string) bool {
	_, ok := m.Index(name)
	return ok
}

// Value returns the cell for entity name and column.
func (m *Matrix) Value(name, column string) (uint8, error) {
	i, ok := m.Index(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownEntity)
	}
	j, ok := m.colIndex[column]
	if !ok {
		return 0, fmt.Errorf("%q: %w", column, ErrUnknownColumn)
	}
	return m.cells[i][j], nil
}

// AddColumn appends an attribute column, backfilling 0 for every existing
// row. Adding an existing column is a no-op and reports false.
func (m *Matrix) AddColumn(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrInvalidName
	}
	if _, ok := m.colIndex[name]; ok {
		return false, nil
	}
	m.colIndex[name] = len(m.columns)
	m.columns = append(m.columns, name)
	for i := range m.cells {
		m.cells[i] = append(m.cells[i], 0)
	}
	return true, nil
}

// Append adds a row for a new entity. Columns missing from values read as 0;
// keys that are not columns return ErrUnknownColumn.
func (m *Matrix) Append(name string, values map[string]uint8) error {
	clean := CleanName(name)
	if clean == "" {
		return ErrInvalidName
	}
	if m.Has(clean) {
		return fmt.Errorf("%q: %w", clean, ErrDuplicateEntity)
	}
	row := make([]uint8, len(m.columns))
	for col, v := range values {
		j, ok := m.colIndex[col]
		if !ok {
			return fmt.Errorf("%q: %w", col, ErrUnknownColumn)
		}
		if v > 1 {
			return fmt.Errorf("%q=%d: %w", col, v, ErrInvalidValue)
		}
		row[j] = v
	}
	m.rowIndex[NormalizeName(clean)] = len(m.names)
	m.names = append(m.names, clean)
	m.cells = append(m.cells, row)
	return nil
}

// Set updates one cell of an existing entity.
func (m *Matrix) Set(name, column string, v uint8) error {
	if v > 1 {
		return fmt.Errorf("%q=%d: %w", column, v, ErrInvalidValue)
	}
	i, ok := m.Index(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownEntity)
	}
	j, ok := m.colIndex[column]
	if !ok {
		return fmt.Errorf("%q: %w", column, ErrUnknownColumn)
	}
	m.cells[i][j] = v
	return nil
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		columns:  make([]string, len(m.columns)),
		colIndex: make(map[string]int, len(m.colIndex)),
		names:    make([]string, len(m.names)),
		rowIndex: make(map[string]int, len(m.rowIndex)),
		cells:    make([][]uint8, len(m.cells)),
	}
	copy(c.columns, m.columns)
	copy(c.names, m.names)
	for k, v := range m.colIndex {
		c.colIndex[k] = v
	}
	for k, v := range m.rowIndex {
		c.rowIndex[k] = v
	}
	for i, row := range m.cells {
		c.cells[i] = make([]uint8, len(row))
		copy(c.cells[i], row)
	}
	return c
}

// Validate checks the matrix invariants: unique non-empty names, full rows,
// binary cells.
func (m *Matrix) Validate() error {
	seen := make(map[string]bool, len(m.names))
	for i, name := range m.names {
		key := NormalizeName(name)
		if key == "" {
			return fmt.Errorf("row %d: %w", i, ErrInvalidName)
		}
		if seen[key] {
			return fmt.Errorf("%q: %w", name, ErrDuplicateEntity)
		}
		seen[key] = true
		if len(m.cells[i]) != len(m.columns) {
			return fmt.Errorf("row %q has %d cells for %d columns: %w", name, len(m.cells[i]), len(m.columns), ErrInvalidValue)
		}
		for j, v := range m.cells[i] {
			if v > 1 {
				return fmt.Errorf("%q.%s=%d: %w", name, m.columns[j], v, ErrInvalidValue)
			}
		}
	}
	return nil
}
