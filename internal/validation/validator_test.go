package validation_test

import (
	stderrors "errors"
	"testing"

	dferrors "github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockColumnProvider implements ColumnProvider for testing.
type MockColumnProvider struct {
	columns []string
	length  int
}

func (m *MockColumnProvider) HasColumn(name string) bool {
	for _, col := range m.columns {
		if col == name {
			return true
		}
	}
	return false
}

func (m *MockColumnProvider) Columns() []string { return m.columns }
func (m *MockColumnProvider) Len() int          { return m.length }
func (m *MockColumnProvider) Width() int        { return len(m.columns) }

type mockColumn struct {
	name string
	n    int
}

func (c mockColumn) Name() string { return c.name }
func (c mockColumn) Len() int     { return c.n }

func TestEncodingValidator(t *testing.T) {
	require.NoError(t, validation.ValidateEncoding([]byte("héllo"), "Col", "column name"))

	err := validation.ValidateEncoding([]byte{'a', 0xff}, "Col", "column name")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, dferrors.ErrConstruction))
	assert.Contains(t, err.Error(), "column name is not valid utf-8")
}

func TestFrameShapeValidator(t *testing.T) {
	tests := []struct {
		name    string
		columns []validation.NamedColumn
		wantErr string
	}{
		{
			name:    "valid",
			columns: []validation.NamedColumn{mockColumn{"a", 2}, mockColumn{"b", 2}},
		},
		{
			name:    "empty",
			columns: nil,
		},
		{
			name:    "duplicate",
			columns: []validation.NamedColumn{mockColumn{"a", 2}, mockColumn{"a", 2}},
			wantErr: "duplicate column name",
		},
		{
			name:    "length mismatch",
			columns: []validation.NamedColumn{mockColumn{"a", 2}, mockColumn{"b", 3}},
			wantErr: "length 3 does not match expected length 2",
		},
		{
			name:    "bad encoding",
			columns: []validation.NamedColumn{mockColumn{string([]byte{0xfe}), 1}},
			wantErr: "not valid utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateFrameShape("NewDataFrame", tt.columns...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, stderrors.Is(err, dferrors.ErrConstruction))
		})
	}
}

func TestUniqueNamesValidator(t *testing.T) {
	assert.NoError(t, validation.ValidateUniqueNames("Select", "a", "b"))

	err := validation.ValidateUniqueNames("Select", "a", "b", "a")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, dferrors.ErrSchema))
}

func TestColumnValidator(t *testing.T) {
	df := &MockColumnProvider{columns: []string{"x", "y"}, length: 3}

	assert.NoError(t, validation.ValidateColumns(df, "Select", "x", "y"))

	err := validation.ValidateColumns(df, "Select", "x", "z")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, dferrors.ErrSchema))
	assert.Contains(t, err.Error(), "'z'")
}

func TestCompoundValidator(t *testing.T) {
	df := &MockColumnProvider{columns: []string{"x"}, length: 1}

	v := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "Op", "x"),
		validation.NewUniqueNamesValidator("Op", "a", "a"),
		validation.NewColumnValidator(df, "Op", "missing"),
	)
	err := v.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate output column name")
}
