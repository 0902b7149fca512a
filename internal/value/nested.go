package value

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
)

// List is a borrowed view of the elements of one list slot. It reads the
// owning column's child array in place, takes no reference of its own and
// must not be used after that owner is released.
type List struct {
	values arrow.Array
	offset int
	length int
}

func (l List) Len() int {
	if l.values == nil {
		return 0
	}
	return l.length
}

// ElementType is TypeUnknown while the list is empty or its element type
// has not been resolved past null.
func (l List) ElementType() Type {
	if l.Len() == 0 {
		return TypeUnknown
	}
	t := FromArrow(l.values.DataType())
	if t == TypeNull {
		return TypeUnknown
	}
	return t
}

func (l List) Get(i int) (Value, error) {
	if i < 0 || i >= l.Len() {
		return Value{}, errors.NewIndexOutOfRangeError("List.Get", i, l.Len())
	}
	return FromArray(l.values, l.offset+i), nil
}

// Struct is a borrowed view of one row of a struct column. Field values read
// through it share memory with the owning Series or DataFrame and must not be
// used after that owner is released.
type Struct struct {
	arr *array.Struct
	row int
}

func (s Struct) NumFields() int {
	if s.arr == nil {
		return 0
	}
	return s.arr.NumField()
}

func (s Struct) FieldNames() []string {
	if s.arr == nil {
		return nil
	}
	st := s.arr.DataType().(*arrow.StructType)
	names := make([]string, st.NumFields())
	for i, f := range st.Fields() {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field of this row.
func (s Struct) Field(name string) (Value, error) {
	if s.arr == nil {
		return Value{}, errors.NewColumnNotFoundError("Struct.Field", name)
	}
	st := s.arr.DataType().(*arrow.StructType)
	idx, ok := st.FieldIdx(name)
	if !ok {
		return Value{}, errors.NewColumnNotFoundError("Struct.Field", name)
	}
	return FromArray(s.arr.Field(idx), s.row), nil
}

// FieldAt returns the i-th field of this row.
func (s Struct) FieldAt(i int) (Value, error) {
	if i < 0 || i >= s.NumFields() {
		return Value{}, errors.NewIndexOutOfRangeError("Struct.FieldAt", i, s.NumFields())
	}
	return FromArray(s.arr.Field(i), s.row), nil
}
