// Package rowkey encodes the values of one or more key columns at a row into
// a canonical byte string and groups or matches rows by those encodings.
// Hashing uses xxhash; equality is always confirmed on the encoded bytes.
package rowkey

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
)

const (
	nullTag  = 0
	validTag = 1
)

// canonical NaN so every NaN payload hashes alike
var nanBits = math.Float64bits(math.NaN())

type encodeFunc func(buf []byte, row int) []byte

// Keys encodes rows of a fixed set of key columns.
type Keys struct {
	cols []arrow.Array
	enc  []encodeFunc
}

// NewKeys prepares encoders for cols. All columns must have equal length.
func NewKeys(cols []arrow.Array) (*Keys, error) {
	k := &Keys{cols: cols, enc: make([]encodeFunc, len(cols))}
	for i, col := range cols {
		if i > 0 && col.Len() != cols[0].Len() {
			return nil, errors.NewExecutionError("RowKey", "key columns differ in length")
		}
		enc, err := encoderFor(col)
		if err != nil {
			return nil, err
		}
		k.enc[i] = enc
	}
	return k, nil
}

// Len is the number of rows.
func (k *Keys) Len() int {
	if len(k.cols) == 0 {
		return 0
	}
	return k.cols[0].Len()
}

// Append appends the encoding of row to buf.
func (k *Keys) Append(buf []byte, row int) []byte {
	for i, col := range k.cols {
		if value.IsNullAt(col, row) {
			buf = append(buf, nullTag)
			continue
		}
		buf = append(buf, validTag)
		buf = k.enc[i](buf, row)
	}
	return buf
}

// HasNull reports whether any key column is null at row.
func (k *Keys) HasNull(row int) bool {
	for _, col := range k.cols {
		if value.IsNullAt(col, row) {
			return true
		}
	}
	return false
}

func encoderFor(col arrow.Array) (encodeFunc, error) {
	switch a := col.(type) {
	case *array.Null:
		return func(buf []byte, _ int) []byte { return buf }, nil
	case *array.Boolean:
		return func(buf []byte, row int) []byte {
			if a.Value(row) {
				return append(buf, 1)
			}
			return append(buf, 0)
		}, nil
	case *array.Int8:
		return signed(a.Value), nil
	case *array.Int16:
		return signed(a.Value), nil
	case *array.Int32:
		return signed(a.Value), nil
	case *array.Int64:
		return signed(a.Value), nil
	case *array.Uint8:
		return unsigned(a.Value), nil
	case *array.Uint16:
		return unsigned(a.Value), nil
	case *array.Uint32:
		return unsigned(a.Value), nil
	case *array.Uint64:
		return unsigned(a.Value), nil
	case *array.Float32:
		return func(buf []byte, row int) []byte { return appendFloat(buf, float64(a.Value(row))) }, nil
	case *array.Float64:
		return func(buf []byte, row int) []byte { return appendFloat(buf, a.Value(row)) }, nil
	case *array.String:
		return func(buf []byte, row int) []byte { return appendBytes(buf, []byte(a.Value(row))) }, nil
	case *array.LargeString:
		return func(buf []byte, row int) []byte { return appendBytes(buf, []byte(a.Value(row))) }, nil
	case *array.Binary:
		return func(buf []byte, row int) []byte { return appendBytes(buf, a.Value(row)) }, nil
	case *array.LargeBinary:
		return func(buf []byte, row int) []byte { return appendBytes(buf, a.Value(row)) }, nil
	}
	switch value.FromArrow(col.DataType()) {
	case value.TypeList, value.TypeStruct:
		return func(buf []byte, row int) []byte {
			return appendBytes(buf, []byte(value.FromArray(col, row).String()))
		}, nil
	}
	return nil, errors.NewUnsupportedTypeError("RowKey", col.DataType().String())
}

func signed[T int8 | int16 | int32 | int64](get func(int) T) encodeFunc {
	return func(buf []byte, row int) []byte {
		return binary.BigEndian.AppendUint64(buf, uint64(int64(get(row))))
	}
}

func unsigned[T uint8 | uint16 | uint32 | uint64](get func(int) T) encodeFunc {
	return func(buf []byte, row int) []byte {
		return binary.BigEndian.AppendUint64(buf, uint64(get(row)))
	}
}

func appendFloat(buf []byte, f float64) []byte {
	bits := math.Float64bits(f)
	switch {
	case math.IsNaN(f):
		bits = nanBits
	case f == 0:
		bits = 0
	}
	return binary.BigEndian.AppendUint64(buf, bits)
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// Groups partitions rows by key equality. Groups appear in order of their
// first row; rows within a group keep input order. Null is a key value equal
// only to null.
type Groups struct {
	Rows [][]int
}

// Len is the number of groups.
func (g *Groups) Len() int {
	return len(g.Rows)
}

// First returns the first row of every group.
func (g *Groups) First() []int {
	out := make([]int, len(g.Rows))
	for i, rows := range g.Rows {
		out[i] = rows[0]
	}
	return out
}

// GroupOf returns, for every input row, the index of its group.
func (g *Groups) GroupOf(n int) []int {
	out := make([]int, n)
	for gi, rows := range g.Rows {
		for _, r := range rows {
			out[r] = gi
		}
	}
	return out
}

// Group partitions the rows of cols.
func Group(cols []arrow.Array) (*Groups, error) {
	keys, err := NewKeys(cols)
	if err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		return nil, errors.NewExecutionError("Group", "at least one key column is required")
	}
	n := keys.Len()

	table := make(map[uint64][]int)
	var encoded [][]byte
	groups := &Groups{}
	var buf []byte

	for row := 0; row < n; row++ {
		buf = keys.Append(buf[:0], row)
		h := xxhash.Sum64(buf)

		gid := -1
		for _, candidate := range table[h] {
			if bytes.Equal(encoded[candidate], buf) {
				gid = candidate
				break
			}
		}
		if gid < 0 {
			gid = len(groups.Rows)
			table[h] = append(table[h], gid)
			encoded = append(encoded, append([]byte(nil), buf...))
			groups.Rows = append(groups.Rows, nil)
		}
		groups.Rows[gid] = append(groups.Rows[gid], row)
	}
	return groups, nil
}

// Index is a hash index over the build side of an equi-join. Rows with a null
// key component are never indexed.
type Index struct {
	table   map[uint64][]int
	encoded [][]byte
}

// NewIndex indexes every row of cols.
func NewIndex(cols []arrow.Array) (*Index, error) {
	keys, err := NewKeys(cols)
	if err != nil {
		return nil, err
	}
	idx := &Index{table: make(map[uint64][]int), encoded: make([][]byte, keys.Len())}
	for row := 0; row < keys.Len(); row++ {
		if keys.HasNull(row) {
			continue
		}
		enc := keys.Append(nil, row)
		idx.encoded[row] = enc
		h := xxhash.Sum64(enc)
		idx.table[h] = append(idx.table[h], row)
	}
	return idx, nil
}

// Probe returns the indexed rows whose key equals row of probe, in build order.
func (idx *Index) Probe(probe *Keys, row int, buf []byte) ([]int, []byte) {
	if probe.HasNull(row) {
		return nil, buf
	}
	buf = probe.Append(buf[:0], row)
	var matches []int
	for _, candidate := range idx.table[xxhash.Sum64(buf)] {
		if bytes.Equal(idx.encoded[candidate], buf) {
			matches = append(matches, candidate)
		}
	}
	return matches, buf
}
