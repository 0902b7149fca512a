//go:build cgo

package exchange

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
)

// ImportCData takes ownership of a record batch exported through the C Data
// Interface: a struct array and its schema. The producer must not release
// either afterwards, whether or not the import succeeds.
func ImportCData(arr *cdata.CArrowArray, schema *cdata.CArrowSchema) (*dataframe.DataFrame, error) {
	rec, err := cdata.ImportCRecordBatch(arr, schema)
	if err != nil {
		cdata.ReleaseCArrowArray(arr)
		return nil, errors.Wrap(errors.KindConstruction, "ImportCData", err)
	}
	defer rec.Release()
	return FromRecord(rec)
}

// ExportCData exports df as a record batch. Both outputs must be zero
// initialized; the consumer releases them.
func ExportCData(df *dataframe.DataFrame, outArray *cdata.CArrowArray, outSchema *cdata.CArrowSchema) {
	rec := ToRecord(df)
	defer rec.Release()
	cdata.ExportArrowRecordBatch(rec, outArray, outSchema)
}

// ExportCSchema exports the schema of df
func ExportCSchema(df *dataframe.DataFrame, out *cdata.CArrowSchema) {
	cdata.ExportArrowSchema(df.Schema(), out)
}

// ExportSeriesCSchema exports the schema of a single column as a struct
// schema with one field, which keeps the column name.
func ExportSeriesCSchema(s *series.Series, out *cdata.CArrowSchema) {
	field := arrow.Field{Name: s.Name(), Type: s.DataType(), Nullable: true}
	cdata.ExportArrowSchema(arrow.NewSchema([]arrow.Field{field}, nil), out)
}
