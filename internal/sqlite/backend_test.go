package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// setupBackend attaches a backend to dataDir and detaches it on cleanup.
func setupBackend(t *testing.T, dataDir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestAttachSeedsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	b := setupBackend(t, dir)

	m, err := b.Load()
	require.NoError(t, err)
	seed := dataset.Seed()
	assert.Equal(t, seed.Names(), m.Names())
	assert.Equal(t, seed.Columns(), m.Columns())
	for i := 0; i < m.Len(); i++ {
		assert.Equal(t, seed.Row(i), m.Row(i), m.Name(i))
	}

	for _, name := range jsonlFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), "%s holds the seed", name)
	}
}

func TestAttachErrors(t *testing.T) {
	b := setupBackend(t, t.TempDir())
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}), types.ErrAlreadyAttached)

	other := NewBackend()
	assert.ErrorIs(t, other.Attach(types.Config{Backend: "postgres"}), types.ErrBackendUnknown)
}

func TestDetach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "idempotent")

	_, err := b.Load()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, b.Save(dataset.Seed()), types.ErrStoreDetached)
}

func TestSaveSurvivesReattach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	require.NoError(t, b.Attach(cfg))

	m, err := b.Load()
	require.NoError(t, err)
	_, err = m.AddColumn("HasFeathers")
	require.NoError(t, err)
	require.NoError(t, m.Append("Owl", map[string]uint8{"CanFly": 1, "HasFeathers": 1, "IsNocturnal": 1}))
	require.NoError(t, m.Set("Eagle", "HasFeathers", 1))
	require.NoError(t, b.Save(m))
	require.NoError(t, b.Detach())

	b2 := setupBackend(t, dir)
	got, err := b2.Load()
	require.NoError(t, err)
	assert.Equal(t, m.Names(), got.Names())
	assert.Equal(t, m.Columns(), got.Columns())
	for i := 0; i < m.Len(); i++ {
		assert.Equal(t, m.Row(i), got.Row(i), m.Name(i))
	}
}

func TestSaveReplacesContents(t *testing.T) {
	b := setupBackend(t, t.TempDir())
	m, err := types.NewMatrix([]string{"IsMammal"})
	require.NoError(t, err)
	require.NoError(t, m.Append("Dog", nil))
	require.NoError(t, b.Save(m))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Dog"}, got.Names())
}

func TestSaveFileFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	b := setupBackend(t, dir)

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })
	if f, err := os.CreateTemp(dir, "writable"); err == nil {
		f.Close()
		os.Remove(f.Name())
		t.Skip("directory permissions are not enforced for this user")
	}

	m, err := b.Load()
	require.NoError(t, err)
	require.NoError(t, m.Append("Owl", nil))
	assert.Error(t, b.Save(m))

	got, err := b.Load()
	require.NoError(t, err)
	assert.False(t, got.Has("Owl"), "database rolled back")
}

func TestLoadFromHandWrittenJSONL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, attributesJSONL, strings.Join([]string{
		`{"name":"IsMammal","ordinal":0}`,
		`not json`,
		`{"name":"CanFly","ordinal":1,"added_by":"import"}`,
		`{"name":"IsMammal","ordinal":2}`,
		`{"name":"  "}`,
	}, "\n")+"\n")
	writeFile(t, dir, entitiesJSONL, strings.Join([]string{
		`{"name":"Dog","attributes":{"IsMammal":1,"CanFly":0}}`,
		`{"name":"Eagle","attributes":{"CanFly":true,"HasWings":"yes"}}`,
		`{"name":" dog ","attributes":{"CanFly":1}}`,
		`{"name":"Bat","attributes":{"IsMammal":2,"CanFly":"1","HasWings":1}}`,
		`{"name":"","attributes":{"IsMammal":1}}`,
		`{"broken"`,
	}, "\n")+"\n")

	b := setupBackend(t, dir)
	m, err := b.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"IsMammal", "CanFly", "HasWings"}, m.Columns(), "entity-only keys become new columns")
	assert.Equal(t, []string{"Dog", "Eagle", "Bat"}, m.Names(), "first record wins for a repeated name")
	assert.Equal(t, []uint8{1, 0, 0}, m.Row(0))
	assert.Equal(t, []uint8{0, 1, 1}, m.Row(1))
	assert.Equal(t, []uint8{1, 1, 1}, m.Row(2))
	require.NoError(t, m.Validate())
}

func TestAttachDoesNotReseedEntitylessStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, attributesJSONL, `{"name":"IsMammal","ordinal":0}`+"\n")

	b := setupBackend(t, dir)
	m, err := b.Load()
	require.NoError(t, err)
	assert.Zero(t, m.Len())
	assert.Equal(t, []string{"IsMammal"}, m.Columns())
}

func TestCoerceCell(t *testing.T) {
	tests := []struct {
		in   any
		want uint8
	}{
		{in: 1.0, want: 1},
		{in: 0.0, want: 0},
		{in: 3.0, want: 1},
		{in: true, want: 1},
		{in: false, want: 0},
		{in: "YES", want: 1},
		{in: "true", want: 1},
		{in: "1", want: 1},
		{in: "no", want: 0},
		{in: nil, want: 0},
		{in: []any{1}, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceCell(tt.in), "%v", tt.in)
	}
}

func TestFailedSaveIsNotDurable(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		restore bool
	}{
		{name: "published attributes file cannot be replaced", block: attributesJSONL, restore: true},
		{name: "second staged write fails", block: attributesJSONL + stagedSuffix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}
			b := NewBackend()
			require.NoError(t, b.Attach(cfg))

			m, err := b.Load()
			require.NoError(t, err)
			require.NoError(t, m.Append("Owl", map[string]uint8{"CanFly": 1, "IsNocturnal": 1}))

			blocked := filepath.Join(dir, tt.block)
			require.NoError(t, os.RemoveAll(blocked))
			require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))

			require.Error(t, b.Save(m))
			got, err := b.Load()
			require.NoError(t, err)
			assert.False(t, got.Has("Owl"), "database rolled back")
			assert.NoFileExists(t, filepath.Join(dir, commitMarker))
			assert.NoFileExists(t, stagedPath(dir, entitiesJSONL))
			require.NoError(t, b.Detach())

			if tt.restore {
				require.NoError(t, os.RemoveAll(blocked))
			}
			b2 := setupBackend(t, dir)
			reloaded, err := b2.Load()
			require.NoError(t, err)
			assert.False(t, reloaded.Has("Owl"), "failed save must not reappear after reattach")
			assert.Equal(t, dataset.Seed().Names(), reloaded.Names())
		})
	}
}

func TestAttachPublishesCommittedSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, stageSave(dir,
		[]attributeJSON{{Name: "IsMammal", Ordinal: 0}, {Name: "CanFly", Ordinal: 1}},
		[]entityJSON{{Name: "Owl", Attributes: map[string]any{"IsMammal": 0, "CanFly": 1}}},
	))

	b := setupBackend(t, dir)
	m, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Owl"}, m.Names())
	assert.Equal(t, []string{"IsMammal", "CanFly"}, m.Columns())
	assert.Equal(t, []uint8{0, 1}, m.Row(0))

	assert.NoFileExists(t, filepath.Join(dir, commitMarker))
	for _, name := range jsonlFiles {
		assert.NoFileExists(t, stagedPath(dir, name))
	}
}

func TestAttachDropsUncommittedStage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, entitiesJSONL+stagedSuffix, `{"name":"Owl","attributes":{"CanFly":1}}`+"\n")

	b := setupBackend(t, dir)
	m, err := b.Load()
	require.NoError(t, err)
	assert.False(t, m.Has("Owl"))
	assert.Equal(t, dataset.Seed().Names(), m.Names())
	assert.NoFileExists(t, stagedPath(dir, entitiesJSONL))
}

func TestSaveLeavesNoStagedFiles(t *testing.T) {
	dir := t.TempDir()
	b := setupBackend(t, dir)
	m, err := b.Load()
	require.NoError(t, err)
	require.NoError(t, m.Append("Owl", nil))
	require.NoError(t, b.Save(m))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), stagedSuffix), e.Name())
		assert.NotEqual(t, commitMarker, e.Name())
	}
}
