//go:build cgo

package polecat

import (
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/paveg/polecat/internal/exchange"
)

// ImportCData takes ownership of a record batch exported through the Arrow
// C Data Interface. The producer must not release it afterwards.
func ImportCData(arr *cdata.CArrowArray, schema *cdata.CArrowSchema) (*DataFrame, error) {
	df, err := exchange.ImportCData(arr, schema)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// ExportCData exports df as a record batch into zero-initialized outputs.
func ExportCData(df *DataFrame, outArray *cdata.CArrowArray, outSchema *cdata.CArrowSchema) {
	exchange.ExportCData(df.df, outArray, outSchema)
}

// ExportCSchema exports the schema of df.
func ExportCSchema(df *DataFrame, out *cdata.CArrowSchema) {
	exchange.ExportCSchema(df.df, out)
}

// ExportSeriesCSchema exports the schema of s as a one-field struct.
func ExportSeriesCSchema(s *Series, out *cdata.CArrowSchema) {
	exchange.ExportSeriesCSchema(s.s, out)
}
