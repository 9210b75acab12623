package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize twentyq storage",
		Long:  "Create the configuration and data directories, write config.yaml if missing,\nand seed the dataset with the built-in animals when it is empty.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

func runInit(cmd *cobra.Command, opts *options) error {
	if err := opts.dirs.Ensure(); err != nil {
		return err
	}
	a, err := openData(opts.settings)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	entities, attributes := a.data.Len(), len(a.data.Columns())
	if err := a.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "twentyq initialized")
	fmt.Fprintf(out, "  config: %s\n", filepath.Join(opts.dirs.Config, configFileExt))
	fmt.Fprintf(out, "  data:   %s\n", opts.dirs.Data)
	fmt.Fprintf(out, "  %d entities, %d attributes\n", entities, attributes)
	return nil
}
