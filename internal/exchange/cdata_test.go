//go:build cgo

package exchange_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/exchange"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDataRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithNulls(), testutil.WithActiveColumn())
	defer df.Release()

	var carr cdata.CArrowArray
	var cschema cdata.CArrowSchema
	exchange.ExportCData(df, &carr, &cschema)

	imported, err := exchange.ImportCData(&carr, &cschema)
	require.NoError(t, err)
	defer imported.Release()

	testutil.AssertDataFrameEqual(t, df, imported)
}

func TestExportCSchema(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	var cschema cdata.CArrowSchema
	exchange.ExportCSchema(df, &cschema)
	schema, err := cdata.ImportCArrowSchema(&cschema)
	require.NoError(t, err)

	require.Equal(t, 2, schema.NumFields())
	assert.Equal(t, "name", schema.Field(0).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(1).Type)
}

func TestExportSeriesCSchema(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := testutil.Column(t, "score", []float32{1.5}, mem)
	defer s.Release()

	var cschema cdata.CArrowSchema
	exchange.ExportSeriesCSchema(s, &cschema)
	schema, err := cdata.ImportCArrowSchema(&cschema)
	require.NoError(t, err)

	require.Equal(t, 1, schema.NumFields())
	assert.Equal(t, "score", schema.Field(0).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Float32, schema.Field(0).Type)
}
