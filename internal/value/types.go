// Package value defines the scalar data model of the engine: the closed
// ValueType enumeration, the tagged Value union read out of Arrow arrays, and
// borrowed views over list and struct slots.
package value

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Type is the closed enumeration of logical column types.
type Type int

const (
	TypeNull Type = iota
	TypeBoolean
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeList
	TypeUtf8
	TypeStruct
	TypeBinary
	TypeUnknown
)

var typeNames = [...]string{
	TypeNull:    "null",
	TypeBoolean: "bool",
	TypeUInt8:   "u8",
	TypeUInt16:  "u16",
	TypeUInt32:  "u32",
	TypeUInt64:  "u64",
	TypeInt8:    "i8",
	TypeInt16:   "i16",
	TypeInt32:   "i32",
	TypeInt64:   "i64",
	TypeFloat32: "f32",
	TypeFloat64: "f64",
	TypeList:    "list",
	TypeUtf8:    "str",
	TypeStruct:  "struct",
	TypeBinary:  "binary",
	TypeUnknown: "unknown",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// FromArrow maps an Arrow data type onto the enumeration.
func FromArrow(dt arrow.DataType) Type {
	if dt == nil {
		return TypeUnknown
	}
	switch dt.ID() {
	case arrow.NULL:
		return TypeNull
	case arrow.BOOL:
		return TypeBoolean
	case arrow.UINT8:
		return TypeUInt8
	case arrow.UINT16:
		return TypeUInt16
	case arrow.UINT32:
		return TypeUInt32
	case arrow.UINT64:
		return TypeUInt64
	case arrow.INT8:
		return TypeInt8
	case arrow.INT16:
		return TypeInt16
	case arrow.INT32:
		return TypeInt32
	case arrow.INT64:
		return TypeInt64
	case arrow.FLOAT32:
		return TypeFloat32
	case arrow.FLOAT64:
		return TypeFloat64
	case arrow.LIST, arrow.LARGE_LIST:
		return TypeList
	case arrow.STRING, arrow.LARGE_STRING:
		return TypeUtf8
	case arrow.STRUCT:
		return TypeStruct
	case arrow.BINARY, arrow.LARGE_BINARY:
		return TypeBinary
	default:
		return TypeUnknown
	}
}

// ArrowType returns the Arrow type backing a non-nested Type.
// List, Struct and Unknown have no single Arrow counterpart.
func (t Type) ArrowType() (arrow.DataType, bool) {
	switch t {
	case TypeNull:
		return arrow.Null, true
	case TypeBoolean:
		return arrow.FixedWidthTypes.Boolean, true
	case TypeUInt8:
		return arrow.PrimitiveTypes.Uint8, true
	case TypeUInt16:
		return arrow.PrimitiveTypes.Uint16, true
	case TypeUInt32:
		return arrow.PrimitiveTypes.Uint32, true
	case TypeUInt64:
		return arrow.PrimitiveTypes.Uint64, true
	case TypeInt8:
		return arrow.PrimitiveTypes.Int8, true
	case TypeInt16:
		return arrow.PrimitiveTypes.Int16, true
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32, true
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64, true
	case TypeFloat32:
		return arrow.PrimitiveTypes.Float32, true
	case TypeFloat64:
		return arrow.PrimitiveTypes.Float64, true
	case TypeUtf8:
		return arrow.BinaryTypes.String, true
	case TypeBinary:
		return arrow.BinaryTypes.Binary, true
	default:
		return nil, false
	}
}

func (t Type) IsSignedInteger() bool {
	return t >= TypeInt8 && t <= TypeInt64
}

func (t Type) IsUnsignedInteger() bool {
	return t >= TypeUInt8 && t <= TypeUInt64
}

func (t Type) IsInteger() bool {
	return t.IsSignedInteger() || t.IsUnsignedInteger()
}

func (t Type) IsFloat() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// IsNumeric reports integer and floating point types.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsNullAt reports whether slot i of arr is null. Every slot of a
// null-typed array is null even though such arrays carry no bitmap.
func IsNullAt(arr arrow.Array, i int) bool {
	return arr.DataType().ID() == arrow.NULL || arr.IsNull(i)
}
