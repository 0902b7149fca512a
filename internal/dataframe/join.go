package dataframe

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log/level"
	"github.com/paveg/polecat/internal/common"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/rowkey"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/validation"
	"github.com/paveg/polecat/internal/value"
)

// joinSuffix is appended to right-hand column names that collide
const joinSuffix = "_right"

// joinInner matches every left row with the right rows whose keys are equal.
// Output rows follow left order, then right match order. A null key
// component never matches.
func (r *run) joinInner(ctx context.Context, left, right *DataFrame, leftOn, rightOn []expr.Expr) (*DataFrame, error) {
	if len(leftOn) != len(rightOn) {
		return nil, errors.NewSchemaError("Join",
			fmt.Sprintf("%d left keys and %d right keys", len(leftOn), len(rightOn)))
	}
	if len(leftOn) == 0 {
		return nil, errors.NewSchemaError("Join", "at least one key pair is required")
	}

	leftKeys, err := r.joinKeys(ctx, left, leftOn)
	if err != nil {
		return nil, err
	}
	defer func() { releaseArrays(leftKeys) }()
	rightKeys, err := r.joinKeys(ctx, right, rightOn)
	if err != nil {
		return nil, err
	}
	defer func() { releaseArrays(rightKeys) }()

	for i := range leftKeys {
		if err := r.unifyKeys(ctx, leftKeys, rightKeys, i); err != nil {
			return nil, err
		}
	}

	index, err := rowkey.NewIndex(rightKeys)
	if err != nil {
		return nil, err
	}
	probe, err := rowkey.NewKeys(leftKeys)
	if err != nil {
		return nil, err
	}
	var leftRows, rightRows []int
	var buf []byte
	for row := 0; row < left.Len(); row++ {
		var matches []int
		matches, buf = index.Probe(probe, row, buf)
		for _, m := range matches {
			leftRows = append(leftRows, row)
			rightRows = append(rightRows, m)
		}
	}
	level.Debug(r.logger).Log("msg", "joined", "left", left.Len(), "right", right.Len(), "rows", len(leftRows))

	return r.assembleJoin(left, right, rightOn, leftRows, rightRows)
}

func (r *run) joinKeys(ctx context.Context, df *DataFrame, on []expr.Expr) ([]arrow.Array, error) {
	if err := validation.ValidateColumns(df, "Join", referencedColumns(on...)...); err != nil {
		return nil, err
	}
	keys, err := r.evaluateAll(ctx, df, on)
	if err != nil {
		return nil, err
	}
	if err := r.fitHeight("Join", outputNames(on), keys, df.Len()); err != nil {
		releaseArrays(keys)
		return nil, err
	}
	return keys, nil
}

// unifyKeys casts the i-th key pair to its common supertype
func (r *run) unifyKeys(ctx context.Context, left, right []arrow.Array, i int) error {
	lt := value.FromArrow(left[i].DataType())
	rt := value.FromArrow(right[i].DataType())
	if arrow.TypeEqual(left[i].DataType(), right[i].DataType()) {
		return nil
	}
	super, ok := common.Supertype(lt, rt)
	if !ok {
		return errors.NewTypeMismatchError("Join", lt.String(), rt.String())
	}
	for _, side := range [][]arrow.Array{left, right} {
		cast, err := r.eval.Cast(ctx, side[i], super)
		if err != nil {
			return err
		}
		side[i].Release()
		side[i] = cast
	}
	return nil
}

// assembleJoin takes the matched rows of both sides. Right columns used as
// bare join keys are dropped; other name collisions get joinSuffix.
func (r *run) assembleJoin(left, right *DataFrame, rightOn []expr.Expr, leftRows, rightRows []int) (*DataFrame, error) {
	dropped := make(map[string]struct{})
	for _, e := range rightOn {
		if c, ok := e.(*expr.ColumnExpr); ok {
			dropped[c.Name()] = struct{}{}
		}
	}

	out, err := left.Take(leftRows, r.mem)
	if err != nil {
		return nil, err
	}
	cols := out.columns
	taken := make(map[string]struct{}, len(cols))
	for _, s := range cols {
		taken[s.Name()] = struct{}{}
	}

	for _, s := range right.columns {
		if _, skip := dropped[s.Name()]; skip {
			continue
		}
		arr, err := series.TakeArray(s.Borrow(), rightRows, r.mem)
		if err != nil {
			releaseSeries(cols)
			return nil, err
		}
		name := suffixed(s.Name(), taken)
		taken[name] = struct{}{}
		cols = append(cols, series.Wrap(name, arr))
	}
	return newOwned(cols), nil
}
