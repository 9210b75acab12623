package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// ReadCSV parses a dataset whose first column holds entity names and whose
// remaining header cells name the attributes. Rows with a blank name or a
// missing cell are dropped, and a repeated name keeps its first row. Numeric
// cells are coerced to 0/1 (nonzero is 1); anything else is ErrInvalidValue.
func ReadCSV(r io.Reader) (*types.Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header: %w", types.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csv header needs a name column and at least one attribute: %w", types.ErrInvalidInput)
	}
	columns := make([]string, len(header)-1)
	for j, h := range header[1:] {
		columns[j] = strings.TrimSpace(h)
	}
	m, err := types.NewMatrix(columns)
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line++
		if len(rec) != len(header) || types.CleanName(rec[0]) == "" || m.Has(rec[0]) {
			continue
		}
		values := make(map[string]uint8, len(columns))
		complete := true
		for j, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				complete = false
				break
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s value %q: %w", line, columns[j], cell, types.ErrInvalidValue)
			}
			if f != 0 {
				values[columns[j]] = 1
			}
		}
		if !complete {
			continue
		}
		if err := m.Append(rec[0], values); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return m, nil
}

// WriteCSV writes m in the format ReadCSV accepts, with nameHeader as the
// first header cell.
func WriteCSV(w io.Writer, m *types.Matrix, nameHeader string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{nameHeader}, m.Columns()...)); err != nil {
		return err
	}
	rec := make([]string, m.NumColumns()+1)
	for i := 0; i < m.Len(); i++ {
		rec[0] = m.Name(i)
		for j := 0; j < m.NumColumns(); j++ {
			rec[j+1] = strconv.Itoa(int(m.Cell(i, j)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
