// Package cli implements the twentyq command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/twentyq/internal/paths"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// options holds global flag values and the settings resolved from them
// before any subcommand runs.
type options struct {
	configDir string
	dataDir   string
	jsonMode  bool

	dirs     paths.Dirs
	settings Settings
}

// NewRootCmd creates the top-level "twentyq" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "twentyq",
		Short: "A 20-questions game that learns new animals",
		Long: "twentyq asks yes/no questions to guess the animal you are thinking of.\n" +
			"When it guesses wrong it asks what you had in mind and retrains itself.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newPlayCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newTrainCmd(opts))
	root.AddCommand(newEntitiesCmd(opts))
	root.AddCommand(newImportCmd(opts))

	return root
}

// load resolves directories and reads config.yaml. data_dir from the file
// only applies when neither the flag nor TWENTYQ_DATA_DIR is set.
func (o *options) load() error {
	dirs, err := paths.Resolve(o.configDir, o.dataDir, "")
	if err != nil {
		return err
	}
	v, err := loadConfig(dirs.Config)
	if err != nil {
		return err
	}
	o.dirs, err = paths.Resolve(o.configDir, o.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return err
	}
	o.settings, err = readSettings(v)
	if err != nil {
		return err
	}
	o.settings.DataDir = o.dirs.Data
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates mistakes the user can fix from system failures.
func exitCode(err error) int {
	for _, target := range []error{
		types.ErrInvalidInput,
		types.ErrInvalidName,
		types.ErrInvalidValue,
		types.ErrMalformedQuestion,
		types.ErrEmptyDataset,
		types.ErrUnknownEntity,
		types.ErrBackendEmpty,
		types.ErrBackendUnknown,
		types.ErrMaxDepthInvalid,
		types.ErrMinSamplesSplitTooLow,
	} {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
