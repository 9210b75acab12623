package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
)

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the dataset with the contents of a CSV file",
		Long: `Import reads a CSV whose first column holds animal names and whose
remaining columns hold 0/1 attributes. Rows with missing cells and repeated
names are dropped. The dataset is replaced and the model retrained; on any
error the current dataset is kept.

Example:
  twentyq entities --csv > animals.csv
  twentyq import animals.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			m, err := dataset.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			a, err := openApp(opts.settings)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coord.Replace(m); err != nil {
				return fmt.Errorf("importing %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entities with %d attributes\n", m.Len(), m.NumColumns())
			return nil
		},
	}
}
