package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// csvNameHeader labels the entity column in exported CSV.
const csvNameHeader = "Animal"

// entityRecord is the JSON form of one row.
type entityRecord struct {
	Name       string           `json:"name"`
	Attributes map[string]uint8 `json:"attributes"`
}

func newEntitiesCmd(opts *options) *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the animals in the dataset",
		Long: `List every animal with the attributes it has.

With --json each animal is printed with all of its attributes.
With --csv the dataset is written in the format import accepts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openData(opts.settings)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.data.Snapshot()
			out := cmd.OutOrStdout()
			switch {
			case asCSV:
				return dataset.WriteCSV(out, m, csvNameHeader)
			case opts.jsonMode:
				output, err := json.MarshalIndent(entityRecords(m), "", "  ")
				if err != nil {
					return fmt.Errorf("marshal entities: %w", err)
				}
				fmt.Fprintln(out, string(output))
				return nil
			}
			cols := m.Columns()
			for i := 0; i < m.Len(); i++ {
				var has []string
				for j, col := range cols {
					if m.Cell(i, j) == 1 {
						has = append(has, col)
					}
				}
				fmt.Fprintf(out, "%s: %s\n", m.Name(i), strings.Join(has, ", "))
			}
			fmt.Fprintf(out, "%d entities, %d attributes\n", m.Len(), len(cols))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write the dataset as CSV")
	return cmd
}

func entityRecords(m *types.Matrix) []entityRecord {
	cols := m.Columns()
	records := make([]entityRecord, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		attrs := make(map[string]uint8, len(cols))
		for j, col := range cols {
			attrs[col] = m.Cell(i, j)
		}
		records = append(records, entityRecord{Name: m.Name(i), Attributes: attrs})
	}
	return records
}
