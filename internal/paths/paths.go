// Package paths resolves where twentyq keeps config.yaml and its data files.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// appName is the directory name used under the platform config and data roots.
const appName = "twentyq"

// Environment variables that override the directories.
const (
	EnvConfigDir = "TWENTYQ_CONFIG_DIR"
	EnvDataDir   = "TWENTYQ_DATA_DIR"
)

// platformDir holds platform lookups that tests replace.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// Dirs is a resolved, absolute pair of directories.
type Dirs struct {
	Config string
	Data   string
}

// DefaultConfigDir returns the platform config directory.
//
// Linux:   $XDG_CONFIG_HOME/twentyq (fallback ~/.config/twentyq)
// macOS:   ~/Library/Application Support/twentyq
// Windows: %APPDATA%/twentyq
func DefaultConfigDir() (string, error) {
	if platformDir.goos == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform data directory. Outside Linux it sits
// next to config.yaml in a data subdirectory.
//
// Linux:   $XDG_DATA_HOME/twentyq (fallback ~/.local/share/twentyq)
// Others:  <DefaultConfigDir>/data
func DefaultDataDir() (string, error) {
	if platformDir.goos == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// Resolve picks both directories.
//
// Config: configFlag > TWENTYQ_CONFIG_DIR > DefaultConfigDir.
// Data:   dataFlag > TWENTYQ_DATA_DIR > configured (data_dir from
// config.yaml, relative to the config directory) > DefaultDataDir.
func Resolve(configFlag, dataFlag, configured string) (Dirs, error) {
	var d Dirs
	var err error

	switch {
	case configFlag != "":
		d.Config, err = filepath.Abs(configFlag)
	case os.Getenv(EnvConfigDir) != "":
		d.Config, err = filepath.Abs(os.Getenv(EnvConfigDir))
	default:
		d.Config, err = DefaultConfigDir()
	}
	if err != nil {
		return Dirs{}, fmt.Errorf("resolving config dir: %w", err)
	}

	switch {
	case dataFlag != "":
		d.Data, err = filepath.Abs(dataFlag)
	case os.Getenv(EnvDataDir) != "":
		d.Data, err = filepath.Abs(os.Getenv(EnvDataDir))
	case configured != "" && filepath.IsAbs(configured):
		d.Data = filepath.Clean(configured)
	case configured != "":
		d.Data = filepath.Join(d.Config, configured)
	default:
		d.Data, err = DefaultDataDir()
	}
	if err != nil {
		return Dirs{}, fmt.Errorf("resolving data dir: %w", err)
	}
	return d, nil
}

// Ensure creates both directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Config, d.Data} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
