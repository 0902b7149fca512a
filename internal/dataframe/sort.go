package dataframe

import (
	"context"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/validation"
	"github.com/paveg/polecat/internal/value"
)

func (r *run) sort(ctx context.Context, df *DataFrame, by []expr.Expr, opts SortOptions) (*DataFrame, error) {
	if len(by) == 0 {
		return df.Clone(), nil
	}
	descending, err := sortDirections(opts.Descending, len(by))
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(df, "Sort", referencedColumns(by...)...); err != nil {
		return nil, err
	}

	keys, err := r.evaluateAll(ctx, df, by)
	if err != nil {
		return nil, err
	}
	defer func() { releaseArrays(keys) }()
	if err := r.fitHeight("Sort", outputNames(by), keys, df.Len()); err != nil {
		return nil, err
	}

	compare, err := rowComparator(keys, descending, opts.NullsLast)
	if err != nil {
		return nil, err
	}
	indices := make([]int, df.Len())
	for i := range indices {
		indices[i] = i
	}
	if opts.MaintainOrder {
		slices.SortStableFunc(indices, compare)
	} else {
		slices.SortFunc(indices, compare)
	}
	return df.Take(indices, r.mem)
}

// sortDirections expands the descending flags to one per key
func sortDirections(flags []bool, keys int) ([]bool, error) {
	out := make([]bool, keys)
	switch len(flags) {
	case 0:
	case 1:
		for i := range out {
			out[i] = flags[0]
		}
	case keys:
		copy(out, flags)
	default:
		return nil, errors.NewExecutionError("Sort",
			fmt.Sprintf("%d descending flags given for %d sort keys", len(flags), keys))
	}
	return out, nil
}

// rowComparator orders rows by keys in turn. Nulls go first, or last when
// nullsLast is set, whatever the direction of the key.
func rowComparator(keys []arrow.Array, descending []bool, nullsLast bool) (func(a, b int) int, error) {
	cmps := make([]series.Comparator, len(keys))
	for i, k := range keys {
		c, err := series.NewComparator(k)
		if err != nil {
			return nil, err
		}
		cmps[i] = c
	}

	nullOrder := -1
	if nullsLast {
		nullOrder = 1
	}
	return func(a, b int) int {
		for k, key := range keys {
			an, bn := value.IsNullAt(key, a), value.IsNullAt(key, b)
			switch {
			case an && bn:
				continue
			case an:
				return nullOrder
			case bn:
				return -nullOrder
			}
			if c := cmps[k](a, b); c != 0 {
				if descending[k] {
					return -c
				}
				return c
			}
		}
		return 0
	}, nil
}
