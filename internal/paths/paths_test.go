package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform swaps the platform lookups for the duration of a test.
func fakePlatform(t *testing.T, goos, home string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.goos = goos
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) {
		return filepath.Join(home, "Library", "Application Support"), nil
	}
}

func TestDefaultDirsLinux(t *testing.T) {
	fakePlatform(t, "linux", "/home/player")

	t.Run("XDG variables win", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		cfg, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/twentyq", cfg)

		data, err := DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/twentyq", data)
	})

	t.Run("home fallbacks", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		cfg, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/player/.config/twentyq", cfg)

		data, err := DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/player/.local/share/twentyq", data)
	})
}

func TestDefaultDirsDarwin(t *testing.T) {
	fakePlatform(t, "darwin", "/Users/player")

	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/Users/player/Library/Application Support/twentyq", cfg)

	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/Users/player/Library/Application Support/twentyq/data", data)
}

func TestDefaultDirsHomeError(t *testing.T) {
	fakePlatform(t, "linux", "")
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	fakePlatform(t, "linux", "/home/player")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	tests := []struct {
		name       string
		configFlag string
		dataFlag   string
		configured string
		envConfig  string
		envData    string
		want       Dirs
	}{
		{
			name: "platform defaults",
			want: Dirs{Config: "/home/player/.config/twentyq", Data: "/home/player/.local/share/twentyq"},
		},
		{
			name:       "flags win over everything",
			configFlag: "/flag/config",
			dataFlag:   "/flag/data",
			configured: "/config/data",
			envConfig:  "/env/config",
			envData:    "/env/data",
			want:       Dirs{Config: "/flag/config", Data: "/flag/data"},
		},
		{
			name:       "env wins over config.yaml",
			configured: "/config/data",
			envConfig:  "/env/config",
			envData:    "/env/data",
			want:       Dirs{Config: "/env/config", Data: "/env/data"},
		},
		{
			name:       "absolute data_dir from config.yaml",
			configFlag: "/flag/config",
			configured: "/srv/twentyq",
			want:       Dirs{Config: "/flag/config", Data: "/srv/twentyq"},
		},
		{
			name:       "relative data_dir is under the config dir",
			configFlag: "/flag/config",
			configured: "db",
			want:       Dirs{Config: "/flag/config", Data: "/flag/config/db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envConfig)
			t.Setenv(EnvDataDir, tt.envData)
			got, err := Resolve(tt.configFlag, tt.dataFlag, tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMakesFlagsAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")
	got, err := Resolve("relative/config", "relative/data", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got.Config))
	assert.True(t, filepath.IsAbs(got.Data))
}

func TestEnsure(t *testing.T) {
	root := t.TempDir()
	d := Dirs{Config: filepath.Join(root, "cfg"), Data: filepath.Join(root, "data", "nested")}
	require.NoError(t, d.Ensure())
	for _, dir := range []string{d.Config, d.Data} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
