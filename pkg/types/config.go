package types

import "errors"

// Config holds backend selection and trainer limits used when the dataset
// store is attached and the model is built.
type Config struct {
	Backend string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string        `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Trainer TrainerConfig `json:"trainer" yaml:"trainer" mapstructure:"trainer"`
}

// TrainerConfig bounds the decision tree. Zero values mean "no limit" for
// MaxDepth and the default of 2 for MinSamplesSplit.
type TrainerConfig struct {
	MaxDepth        int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split" mapstructure:"min_samples_split"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultMinSamplesSplit is the smallest node the trainer will try to split.
const DefaultMinSamplesSplit = 2

// Config validation errors.
var (
	ErrBackendEmpty          = errors.New("backend must not be empty")
	ErrBackendUnknown        = errors.New("unknown backend")
	ErrMaxDepthInvalid       = errors.New("max depth must not be negative")
	ErrMinSamplesSplitTooLow = errors.New("min samples split must be at least 2")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return c.Trainer.Validate()
}

// Validate checks the trainer limits.
func (t TrainerConfig) Validate() error {
	if t.MaxDepth < 0 {
		return ErrMaxDepthInvalid
	}
	if t.MinSamplesSplit != 0 && t.MinSamplesSplit < DefaultMinSamplesSplit {
		return ErrMinSamplesSplitTooLow
	}
	return nil
}

// GetMinSamplesSplit returns the configured minimum or the default.
func (t TrainerConfig) GetMinSamplesSplit() int {
	if t.MinSamplesSplit == 0 {
		return DefaultMinSamplesSplit
	}
	return t.MinSamplesSplit
}
