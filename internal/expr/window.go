package expr

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/rowkey"
	"github.com/paveg/polecat/internal/series"
)

// evaluateWindow runs the input once per partition of the frame. Length-1
// results are broadcast over the partition, full-length results are
// scattered back to the partition's rows.
func (e *Evaluator) evaluateWindow(ctx context.Context, expr *WindowExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	if len(expr.partitionBy) == 0 {
		return nil, errors.NewExecutionError("over", "at least one partition expression is required")
	}
	height := frameHeight(columns)

	keys := make([]arrow.Array, 0, len(expr.partitionBy))
	defer func() {
		for _, k := range keys {
			k.Release()
		}
	}()
	for _, p := range expr.partitionBy {
		key, err := e.Evaluate(ctx, p, columns)
		if err != nil {
			return nil, err
		}
		if key.Len() == 1 && height != 1 {
			wide, err := series.Broadcast(key, height, e.mem)
			key.Release()
			if err != nil {
				return nil, err
			}
			key = wide
		}
		if key.Len() != height {
			key.Release()
			return nil, errors.NewExecutionError("over", fmt.Sprintf("partition key has %d rows, frame has %d", key.Len(), height))
		}
		keys = append(keys, key)
	}

	if height == 0 {
		out, err := e.Evaluate(ctx, expr.input, columns)
		if err != nil {
			return nil, err
		}
		defer out.Release()
		return array.NewSlice(out, 0, 0), nil
	}

	groups, err := rowkey.Group(keys)
	if err != nil {
		return nil, err
	}

	parts := make([]arrow.Array, 0, groups.Len())
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	positions := make([]int, height)
	base := 0
	for _, rows := range groups.Rows {
		out, err := e.EvaluateRows(ctx, expr.input, columns, rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, out)

		switch out.Len() {
		case len(rows):
			for k, r := range rows {
				positions[r] = base + k
			}
		case 1:
			for _, r := range rows {
				positions[r] = base
			}
		default:
			return nil, errors.NewExecutionError("over", fmt.Sprintf("partition of %d rows produced %d values", len(rows), out.Len()))
		}
		base += out.Len()
	}

	combined, err := array.Concatenate(parts, e.mem)
	if err != nil {
		return nil, errors.Wrap(errors.KindExecution, "over", err)
	}
	defer combined.Release()
	return series.TakeArray(combined, positions, e.mem)
}

// EvaluateRows evaluates input over the given rows of columns only. Columns
// the expression does not reference are not copied.
func (e *Evaluator) EvaluateRows(ctx context.Context, input Expr, columns map[string]arrow.Array, rows []int) (arrow.Array, error) {
	sub := make(map[string]arrow.Array)
	defer func() {
		for _, a := range sub {
			a.Release()
		}
	}()
	for _, name := range Columns(input) {
		col, ok := columns[name]
		if !ok {
			continue
		}
		taken, err := series.TakeArray(col, rows, e.mem)
		if err != nil {
			return nil, err
		}
		sub[name] = taken
	}
	return e.Evaluate(ctx, input, sub)
}

// frameHeight is the common length of the frame's columns.
func frameHeight(columns map[string]arrow.Array) int {
	for _, c := range columns {
		return c.Len()
	}
	return 0
}
