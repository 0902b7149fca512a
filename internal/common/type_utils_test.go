package common_test

import (
	"testing"

	"github.com/paveg/polecat/internal/common"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
)

func TestNumericSupertype(t *testing.T) {
	tests := []struct {
		a, b value.Type
		want value.Type
		ok   bool
	}{
		{value.TypeInt32, value.TypeInt32, value.TypeInt32, true},
		{value.TypeInt8, value.TypeInt64, value.TypeInt64, true},
		{value.TypeUInt8, value.TypeUInt32, value.TypeUInt32, true},
		{value.TypeUInt32, value.TypeInt32, value.TypeInt64, true},
		{value.TypeUInt8, value.TypeInt32, value.TypeInt32, true},
		{value.TypeUInt64, value.TypeInt8, value.TypeFloat64, true},
		{value.TypeUInt64, value.TypeInt64, value.TypeFloat64, true},
		{value.TypeUInt32, value.TypeInt64, value.TypeInt64, true},
		{value.TypeFloat32, value.TypeInt16, value.TypeFloat32, true},
		{value.TypeFloat32, value.TypeInt32, value.TypeFloat64, true},
		{value.TypeFloat32, value.TypeFloat64, value.TypeFloat64, true},
		{value.TypeNull, value.TypeUInt16, value.TypeUInt16, true},
		{value.TypeUtf8, value.TypeInt32, value.TypeUnknown, false},
		{value.TypeBoolean, value.TypeBoolean, value.TypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			got, ok := common.NumericSupertype(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)

			rev, ok := common.NumericSupertype(tt.b, tt.a)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, rev)
		})
	}
}

func TestSupertype(t *testing.T) {
	got, ok := common.Supertype(value.TypeUtf8, value.TypeUtf8)
	assert.True(t, ok)
	assert.Equal(t, value.TypeUtf8, got)

	got, ok = common.Supertype(value.TypeNull, value.TypeBoolean)
	assert.True(t, ok)
	assert.Equal(t, value.TypeBoolean, got)

	_, ok = common.Supertype(value.TypeUtf8, value.TypeBinary)
	assert.False(t, ok)
}
