package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/twentyq/internal/game"
	"github.com/mesh-intelligence/twentyq/internal/logging"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TWENTYQ"

	cfgKeyDataDir = "data_dir"
)

// configHeader is written above the generated config.yaml.
const configHeader = `twentyq configuration.
Every key can be overridden with a TWENTYQ_ environment variable,
for example TWENTYQ_LOG_LEVEL=debug or TWENTYQ_SERVER_ADDR=:9090.`

// Settings is the full contents of config.yaml.
type Settings struct {
	types.Config `mapstructure:",squash" yaml:",inline"`
	Log          logging.Config `mapstructure:"log" yaml:"log"`
	Server       ServerConfig   `mapstructure:"server" yaml:"server"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"-"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" yaml:"-"`
	MaxSessions     int           `mapstructure:"max_sessions" yaml:"max_sessions"`
}

func defaultSettings() Settings {
	return Settings{
		Config: types.Config{
			Backend: types.BackendSQLite,
			Trainer: types.TrainerConfig{MinSamplesSplit: types.DefaultMinSamplesSplit},
		},
		Log: logging.Config{Level: "info", Encoding: "console"},
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 5 * time.Second,
			SessionTTL:      game.DefaultIdleTTL,
			MaxSessions:     game.DefaultMaxSessions,
		},
	}
}

// loadConfig reads config.yaml from configDir, writing a default file on
// first run. Environment variables prefixed TWENTYQ_ override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultSettings()); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, defaultSettings())
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

// setDefaults registers every key so AutomaticEnv can see it on Unmarshal.
func setDefaults(v *viper.Viper, s Settings) {
	v.SetDefault("backend", s.Backend)
	v.SetDefault(cfgKeyDataDir, s.DataDir)
	v.SetDefault("trainer.max_depth", s.Trainer.MaxDepth)
	v.SetDefault("trainer.min_samples_split", s.Trainer.MinSamplesSplit)
	v.SetDefault("log.level", s.Log.Level)
	v.SetDefault("log.encoding", s.Log.Encoding)
	v.SetDefault("log.output_path", s.Log.OutputPath)
	v.SetDefault("server.addr", s.Server.Addr)
	v.SetDefault("server.allowed_origins", s.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", s.Server.ShutdownTimeout)
	v.SetDefault("server.session_ttl", s.Server.SessionTTL)
	v.SetDefault("server.max_sessions", s.Server.MaxSessions)
}

// readSettings decodes and validates the merged configuration.
func readSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml from s with a comment header.
// An existing file is left alone.
func writeConfigIfMissing(path string, s Settings) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	var doc yaml.Node
	if err := doc.Encode(&s); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	doc.HeadComment = configHeader
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
