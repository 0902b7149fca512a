// Package exchange moves DataFrames in and out of Apache Arrow records,
// in-process or across the Arrow C Data Interface.
package exchange

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
)

// FromRecord creates a DataFrame sharing the columns of rec. The record keeps
// its own reference. Field names must be valid UTF-8 and unique, and every
// column type must be one the engine can evaluate.
func FromRecord(rec arrow.Record) (*dataframe.DataFrame, error) {
	schema := rec.Schema()
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		if err := checkType("FromRecord", f.Name, f.Type); err != nil {
			return nil, err
		}
		names[i] = f.Name
	}
	return dataframe.FromArrays(names, rec.Columns())
}

// ToRecord returns a record over the columns of df. The caller releases it.
func ToRecord(df *dataframe.DataFrame) arrow.Record {
	cols := df.Series()
	arrays := make([]arrow.Array, len(cols))
	for i, s := range cols {
		arrays[i] = s.Borrow()
	}
	return array.NewRecord(df.Schema(), arrays, int64(df.Len()))
}

// Schema returns the Arrow schema of df
func Schema(df *dataframe.DataFrame) *arrow.Schema {
	return df.Schema()
}

// checkType rejects Arrow types outside the engine's type set, including the
// 64-bit offset variants the kernels do not read.
func checkType(op, name string, dt arrow.DataType) error {
	switch dt.ID() {
	case arrow.LARGE_STRING, arrow.LARGE_BINARY, arrow.LARGE_LIST:
		return unsupported(op, name, dt)
	case arrow.LIST:
		return checkType(op, name, dt.(*arrow.ListType).Elem())
	case arrow.STRUCT:
		for _, f := range dt.(*arrow.StructType).Fields() {
			if err := checkType(op, name, f.Type); err != nil {
				return err
			}
		}
		return nil
	}
	if value.FromArrow(dt) == value.TypeUnknown {
		return unsupported(op, name, dt)
	}
	return nil
}

func unsupported(op, name string, dt arrow.DataType) error {
	return &errors.DataFrameError{
		Kind:    errors.KindType,
		Op:      op,
		Column:  name,
		Message: fmt.Sprintf("unsupported type: %s", dt),
	}
}
