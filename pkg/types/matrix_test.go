package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := NewMatrix([]string{"IsMammal", "CanFly"})
	require.NoError(t, err)
	require.NoError(t, m.Append("Dog", map[string]uint8{"IsMammal": 1}))
	require.NoError(t, m.Append("Eagle", map[string]uint8{"CanFly": 1}))
	return m
}

func TestNewMatrix(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		wantErr error
	}{
		{name: "no columns", columns: nil},
		{name: "distinct columns", columns: []string{"IsMammal", "HasFur"}},
		{name: "duplicate column", columns: []string{"IsMammal", "IsMammal"}, wantErr: ErrDuplicateColumn},
		{name: "blank column", columns: []string{" "}, wantErr: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatrix(tt.columns)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.columns), m.NumColumns())
			assert.Zero(t, m.Len())
		})
	}
}

func TestMatrixAppend(t *testing.T) {
	tests := []struct {
		name    string
		entity  string
		values  map[string]uint8
		wantErr error
	}{
		{name: "new entity with partial values", entity: "Bat", values: map[string]uint8{"CanFly": 1}},
		{name: "duplicate after normalization", entity: "  dOG ", wantErr: ErrDuplicateEntity},
		{name: "empty name", entity: "   ", wantErr: ErrInvalidName},
		{name: "unknown column", entity: "Frog", values: map[string]uint8{"IsGreen": 1}, wantErr: ErrUnknownColumn},
		{name: "non-binary value", entity: "Frog", values: map[string]uint8{"CanFly": 2}, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatrix(t)
			err := m.Append(tt.entity, tt.values)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 2, m.Len(), "failed append must not add a row")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, m.Len())
			assert.Equal(t, []uint8{0, 1}, m.Row(2), "missing columns read as 0")
		})
	}
}

func TestMatrixAddColumnBackfillsZero(t *testing.T) {
	m := newTestMatrix(t)

	added, err := m.AddColumn("HasFur")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.AddColumn("HasFur")
	require.NoError(t, err)
	assert.False(t, added, "re-adding a column is a no-op")

	for i := 0; i < m.Len(); i++ {
		v, err := m.Value(m.Name(i), "HasFur")
		require.NoError(t, err)
		assert.Zero(t, v)
	}
	assert.Equal(t, []string{"IsMammal", "CanFly", "HasFur"}, m.Columns())
	require.NoError(t, m.Validate())
}

func TestMatrixSet(t *testing.T) {
	m := newTestMatrix(t)

	require.NoError(t, m.Set("dog", "CanFly", 1))
	v, err := m.Value("Dog", "CanFly")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	assert.ErrorIs(t, m.Set("Cat", "CanFly", 1), ErrUnknownEntity)
	assert.ErrorIs(t, m.Set("Dog", "IsGreen", 1), ErrUnknownColumn)
	assert.ErrorIs(t, m.Set("Dog", "CanFly", 3), ErrInvalidValue)
}

func TestMatrixCloneIsIndependent(t *testing.T) {
	m := newTestMatrix(t)
	c := m.Clone()

	_, err := c.AddColumn("HasFur")
	require.NoError(t, err)
	require.NoError(t, c.Append("Bat", nil))
	require.NoError(t, c.Set("Dog", "IsMammal", 0))

	assert.Equal(t, 2, m.NumColumns())
	assert.Equal(t, 2, m.Len())
	v, err := m.Value("Dog", "IsMammal")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "polar bear", NormalizeName("  Polar   BEAR "))
	assert.Equal(t, "Polar Bear", CleanName("  Polar   Bear "))
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		token   string
		want    uint8
		wantErr bool
	}{
		{token: "yes", want: 1},
		{token: " YES ", want: 1},
		{token: "no", want: 0},
		{token: "No", want: 0},
		{token: "maybe", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseAnswer(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
