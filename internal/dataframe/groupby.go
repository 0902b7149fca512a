package dataframe

import (
	"context"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/go-kit/log/level"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/parallel"
	"github.com/paveg/polecat/internal/rowkey"
	"github.com/paveg/polecat/internal/series"
)

// aggregate groups df by keys and evaluates every aggregation once per
// group. Groups appear in order of first occurrence. Aggregations that do
// not reduce to one value yield a list per group.
func (r *run) aggregate(ctx context.Context, df *DataFrame, keys, aggs []expr.Expr) (*DataFrame, error) {
	if len(keys) == 0 {
		return nil, errors.NewSchemaError("GroupBy", "at least one key is required")
	}
	keyNames := outputNames(keys)
	aggNames := outputNames(aggs)
	names := append(append([]string(nil), keyNames...), aggNames...)
	if err := checkProjection("GroupBy", df, slices.Concat(keys, aggs), names); err != nil {
		return nil, err
	}

	keyArrays, err := r.evaluateAll(ctx, df, keys)
	if err != nil {
		return nil, err
	}
	defer func() { releaseArrays(keyArrays) }()
	if err := r.fitHeight("GroupBy", keyNames, keyArrays, df.Len()); err != nil {
		return nil, err
	}

	var groups [][]int
	if df.Len() > 0 {
		g, err := rowkey.Group(keyArrays)
		if err != nil {
			return nil, err
		}
		groups = g.Rows
	}
	level.Debug(r.logger).Log("msg", "grouped rows", "rows", df.Len(), "groups", len(groups))

	firsts := make([]int, len(groups))
	for i, rows := range groups {
		firsts[i] = rows[0]
	}
	out := make([]arrow.Array, 0, len(names))
	for _, key := range keyArrays {
		taken, err := series.TakeArray(key, firsts, r.mem)
		if err != nil {
			releaseArrays(out)
			return nil, err
		}
		out = append(out, taken)
	}

	cols := df.arrays()
	for i, agg := range aggs {
		arr, err := r.aggregateColumn(ctx, agg, cols, groups)
		if err != nil {
			releaseArrays(out)
			return nil, fmt.Errorf("aggregating %s: %w", aggNames[i], err)
		}
		out = append(out, arr)
	}
	return fromArrays(names, out)
}

// aggregateColumn evaluates agg for every group and concatenates the results.
func (r *run) aggregateColumn(ctx context.Context, agg expr.Expr, cols map[string]arrow.Array, groups [][]int) (arrow.Array, error) {
	reduces := expr.Reduces(agg)

	if len(groups) == 0 {
		probe, err := r.aggregateGroup(ctx, agg, reduces, cols, []int{})
		if err != nil {
			return nil, err
		}
		defer probe.Release()
		return array.NewSlice(probe, 0, 0), nil
	}

	var parts []arrow.Array
	var err error
	if r.parallel(len(groups)) {
		parts, err = parallel.ProcessIndexed(r.pool, groups, func(ctx context.Context, _ int, rows []int) (arrow.Array, error) {
			return r.aggregateGroup(ctx, agg, reduces, cols, rows)
		})
	} else {
		parts = make([]arrow.Array, 0, len(groups))
		for _, rows := range groups {
			var part arrow.Array
			part, err = r.aggregateGroup(ctx, agg, reduces, cols, rows)
			if err != nil {
				break
			}
			parts = append(parts, part)
		}
	}
	defer func() { releaseArrays(parts) }()
	if err != nil {
		return nil, err
	}

	if len(parts) == 1 {
		parts[0].Retain()
		return parts[0], nil
	}
	combined, err := array.Concatenate(parts, r.mem)
	if err != nil {
		return nil, errors.Wrap(errors.KindExecution, "GroupBy", err)
	}
	return combined, nil
}

func (r *run) aggregateGroup(ctx context.Context, agg expr.Expr, reduces bool, cols map[string]arrow.Array, rows []int) (arrow.Array, error) {
	arr, err := r.eval.EvaluateRows(ctx, agg, cols, rows)
	if err != nil {
		return nil, err
	}
	if !reduces {
		defer arr.Release()
		return r.eval.Implode(arr)
	}
	if arr.Len() != 1 {
		n := arr.Len()
		arr.Release()
		return nil, errors.NewExecutionError("GroupBy", fmt.Sprintf("aggregation produced %d values for one group", n))
	}
	return arr, nil
}
