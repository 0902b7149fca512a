package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
)

// Primitive lists the Go payload types a Value can be read as.
type Primitive interface {
	bool |
		uint8 | uint16 | uint32 | uint64 |
		int8 | int16 | int32 | int64 |
		float32 | float64 |
		string | []byte
}

// Value is one typed slot: a declared type plus either a payload or null.
// The zero Value is an untyped null.
type Value struct {
	declared Type
	valid    bool
	payload  any
}

// Null returns an untyped null.
func Null() Value {
	return Value{declared: TypeNull}
}

// NullOf returns a null slot that came from a column of type t.
func NullOf(t Type) Value {
	return Value{declared: t}
}

// Of wraps a Go primitive.
func Of[T Primitive](v T) Value {
	return Value{declared: TypeOf[T](), valid: true, payload: v}
}

// TypeOf returns the Type a Go primitive maps to.
func TypeOf[T Primitive]() Type {
	var zero T
	switch any(zero).(type) {
	case bool:
		return TypeBoolean
	case uint8:
		return TypeUInt8
	case uint16:
		return TypeUInt16
	case uint32:
		return TypeUInt32
	case uint64:
		return TypeUInt64
	case int8:
		return TypeInt8
	case int16:
		return TypeInt16
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case string:
		return TypeUtf8
	case []byte:
		return TypeBinary
	}
	return TypeUnknown
}

// Type is TypeNull for null slots and the declared type otherwise.
func (v Value) Type() Type {
	if !v.valid {
		return TypeNull
	}
	return v.declared
}

// DeclaredType is the type of the column the value was read from.
func (v Value) DeclaredType() Type {
	return v.declared
}

func (v Value) IsNull() bool {
	return !v.valid
}

// Interface returns the raw payload, or nil for null.
func (v Value) Interface() any {
	if !v.valid {
		return nil
	}
	return v.payload
}

// As reads the payload as T. It never converts: asking for an i32 from an
// f64 slot, or for anything from a null slot, is a type error.
func As[T Primitive](v Value) (T, error) {
	var zero T
	want := TypeOf[T]()
	if !v.valid {
		return zero, errors.NewTypeMismatchError("Value.As", want.String(), "null")
	}
	if v.declared != want {
		return zero, errors.NewTypeMismatchError("Value.As", want.String(), v.declared.String())
	}
	out, ok := v.payload.(T)
	if !ok {
		return zero, errors.NewTypeMismatchError("Value.As", want.String(), v.declared.String())
	}
	return out, nil
}

// List returns the list view of a list slot.
func (v Value) List() (List, error) {
	if !v.valid {
		return List{}, errors.NewTypeMismatchError("Value.List", "list", "null")
	}
	l, ok := v.payload.(List)
	if !ok {
		return List{}, errors.NewTypeMismatchError("Value.List", "list", v.declared.String())
	}
	return l, nil
}

// Struct returns the struct view of a struct slot.
func (v Value) Struct() (Struct, error) {
	if !v.valid {
		return Struct{}, errors.NewTypeMismatchError("Value.Struct", "struct", "null")
	}
	s, ok := v.payload.(Struct)
	if !ok {
		return Struct{}, errors.NewTypeMismatchError("Value.Struct", "struct", v.declared.String())
	}
	return s, nil
}

func (v Value) String() string {
	if !v.valid {
		return "null"
	}
	switch p := v.payload.(type) {
	case string:
		return strconv.Quote(p)
	case []byte:
		return fmt.Sprintf("b%q", p)
	case float32:
		return strconv.FormatFloat(float64(p), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(p, 'g', -1, 64)
	case List:
		parts := make([]string, p.Len())
		for i := range parts {
			elem, _ := p.Get(i)
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Struct:
		names := p.FieldNames()
		parts := make([]string, len(names))
		for i, name := range names {
			field, _ := p.FieldAt(i)
			parts[i] = name + ": " + field.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(p)
	}
}

// FromArray reads slot i of arr. The caller guarantees 0 <= i < arr.Len().
// Nested results borrow from arr.
func FromArray(arr arrow.Array, i int) Value {
	declared := FromArrow(arr.DataType())
	if IsNullAt(arr, i) {
		return Value{declared: declared}
	}
	v := Value{declared: declared, valid: true}
	switch a := arr.(type) {
	case *array.Boolean:
		v.payload = a.Value(i)
	case *array.Uint8:
		v.payload = a.Value(i)
	case *array.Uint16:
		v.payload = a.Value(i)
	case *array.Uint32:
		v.payload = a.Value(i)
	case *array.Uint64:
		v.payload = a.Value(i)
	case *array.Int8:
		v.payload = a.Value(i)
	case *array.Int16:
		v.payload = a.Value(i)
	case *array.Int32:
		v.payload = a.Value(i)
	case *array.Int64:
		v.payload = a.Value(i)
	case *array.Float32:
		v.payload = a.Value(i)
	case *array.Float64:
		v.payload = a.Value(i)
	case *array.String:
		v.payload = a.Value(i)
	case *array.LargeString:
		v.payload = a.Value(i)
	case *array.Binary:
		v.payload = append([]byte(nil), a.Value(i)...)
	case *array.LargeBinary:
		v.payload = append([]byte(nil), a.Value(i)...)
	case array.ListLike:
		start, end := a.ValueOffsets(i)
		v.payload = List{values: a.ListValues(), offset: int(start), length: int(end - start)}
	case *array.Struct:
		v.payload = Struct{arr: a, row: i}
	default:
		v.declared = TypeUnknown
		v.payload = arr.ValueStr(i)
	}
	return v
}
