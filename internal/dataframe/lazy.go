package dataframe

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/monitoring"
)

// LazyFrame is a handle on a deferred plan. Builder methods replace the
// handle's root in place and return the same handle for chaining; the nodes
// themselves are never modified, so clones and pending group-bys keep
// seeing the plan they were taken from.
type LazyFrame struct {
	root planNode
	exec *Executor
}

func newLazyFrame(root planNode) *LazyFrame {
	return &LazyFrame{root: root}
}

// FromSource creates a LazyFrame reading src.
func FromSource(src Source) *LazyFrame {
	return newLazyFrame(&sourceScan{source: src, limit: -1})
}

// WithExecutor sets the executor used by Collect, Fetch and Schema
func (lf *LazyFrame) WithExecutor(exec *Executor) *LazyFrame {
	lf.exec = exec
	return lf
}

func (lf *LazyFrame) executor() *Executor {
	if lf.exec == nil {
		return NewExecutor()
	}
	return lf.exec
}

// Clone returns an independent handle on the same plan
func (lf *LazyFrame) Clone() *LazyFrame {
	return &LazyFrame{root: lf.root, exec: lf.exec}
}

// Select replaces the columns with the evaluated exprs, in order
func (lf *LazyFrame) Select(exprs ...expr.Expr) *LazyFrame {
	lf.root = &selectNode{input: lf.root, exprs: append([]expr.Expr(nil), exprs...)}
	return lf
}

// WithColumns adds or replaces columns by output name
func (lf *LazyFrame) WithColumns(exprs ...expr.Expr) *LazyFrame {
	lf.root = &withColumnsNode{input: lf.root, exprs: append([]expr.Expr(nil), exprs...)}
	return lf
}

// Filter keeps the rows where predicate is true
func (lf *LazyFrame) Filter(predicate expr.Expr) *LazyFrame {
	lf.root = &filterNode{input: lf.root, predicate: predicate}
	return lf
}

// Sort orders rows by the given keys
func (lf *LazyFrame) Sort(by []expr.Expr, opts SortOptions) *LazyFrame {
	opts.Descending = append([]bool(nil), opts.Descending...)
	lf.root = &sortNode{input: lf.root, by: append([]expr.Expr(nil), by...), opts: opts}
	return lf
}

// Limit keeps the first n rows
func (lf *LazyFrame) Limit(n int) *LazyFrame {
	return lf.Slice(0, n)
}

// Slice keeps rows [offset, offset+length)
func (lf *LazyFrame) Slice(offset, length int) *LazyFrame {
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}
	lf.root = &sliceNode{input: lf.root, offset: offset, length: length}
	return lf
}

// GroupBy starts a grouped aggregation. The pending aggregation holds a
// clone of lf, so later changes to lf do not affect it.
func (lf *LazyFrame) GroupBy(keys ...expr.Expr) *LazyGroupBy {
	return &LazyGroupBy{
		lazyFrame: lf.Clone(),
		keys:      append([]expr.Expr(nil), keys...),
	}
}

// JoinInner returns a new LazyFrame joining lf with other on pairwise equal
// keys. Key count mismatches are reported when the plan runs.
func (lf *LazyFrame) JoinInner(other *LazyFrame, leftOn, rightOn []expr.Expr) *LazyFrame {
	return &LazyFrame{
		root: &joinNode{
			left:    lf.root,
			right:   other.root,
			leftOn:  append([]expr.Expr(nil), leftOn...),
			rightOn: append([]expr.Expr(nil), rightOn...),
		},
		exec: lf.exec,
	}
}

// Concat stacks frames vertically. Their schemas are resolved and compared
// now, so a mismatch is reported before any row is produced.
func Concat(ctx context.Context, frames ...*LazyFrame) (*LazyFrame, error) {
	if len(frames) == 0 {
		return nil, errors.NewSchemaError("Concat", "at least one frame is required")
	}

	first, err := frames[0].Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving schema of frame 0: %w", err)
	}
	parts := make([]planNode, len(frames))
	parts[0] = frames[0].root
	for i := 1; i < len(frames); i++ {
		schema, err := frames[i].Schema(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving schema of frame %d: %w", i, err)
		}
		if err := compareSchemas(first, schema, i); err != nil {
			return nil, err
		}
		parts[i] = frames[i].root
	}
	return &LazyFrame{root: &unionNode{parts: parts}, exec: frames[0].exec}, nil
}

func compareSchemas(want, got *arrow.Schema, frame int) error {
	if want.NumFields() != got.NumFields() {
		return errors.NewSchemaError("Concat",
			fmt.Sprintf("frame %d has %d columns, expected %d", frame, got.NumFields(), want.NumFields()))
	}
	for i := range want.Fields() {
		w, g := want.Field(i), got.Field(i)
		if w.Name != g.Name {
			return &errors.DataFrameError{
				Kind:    errors.KindSchema,
				Op:      "Concat",
				Column:  g.Name,
				Message: fmt.Sprintf("frame %d column %d is %q, expected %q", frame, i, g.Name, w.Name),
			}
		}
		if !arrow.TypeEqual(w.Type, g.Type) {
			return &errors.DataFrameError{
				Kind:    errors.KindSchema,
				Op:      "Concat",
				Column:  g.Name,
				Message: fmt.Sprintf("frame %d has type %s, expected %s", frame, g.Type, w.Type),
			}
		}
	}
	return nil
}

// Collect runs the plan and returns a new frame. The plan is left intact.
func (lf *LazyFrame) Collect(ctx context.Context) (*DataFrame, error) {
	return lf.executor().Collect(ctx, lf.root)
}

// Fetch runs the plan and returns at most n rows
func (lf *LazyFrame) Fetch(ctx context.Context, n int) (*DataFrame, error) {
	return lf.executor().Fetch(ctx, lf.root, n)
}

// Schema resolves the output schema by running the plan over empty inputs
func (lf *LazyFrame) Schema(ctx context.Context) (*arrow.Schema, error) {
	return lf.executor().Schema(ctx, lf.root)
}

// Describe returns the plan tree
func (lf *LazyFrame) Describe() monitoring.QueryPlan {
	return describePlan(lf.root)
}

// Explain renders the plan tree as indented text, root first
func (lf *LazyFrame) Explain() string {
	plan := lf.Describe()
	return plan.String()
}

// ExplainOptimized renders the plan Collect would run
func (lf *LazyFrame) ExplainOptimized() string {
	plan := lf.optimizedPlan()
	return plan.String()
}

// ExplainJSON renders the plan Collect would run as JSON, for tools that
// walk the tree.
func (lf *LazyFrame) ExplainJSON() ([]byte, error) {
	plan := lf.optimizedPlan()
	return plan.ToJSON()
}

func (lf *LazyFrame) optimizedPlan() monitoring.QueryPlan {
	root, rewrites := lf.executor().optimizer.Optimize(lf.root)
	plan := describePlan(root)
	plan.Optimized = true
	plan.Rewrites = rewrites
	return plan
}

// String returns the plan as text
func (lf *LazyFrame) String() string {
	return lf.Explain()
}

// LazyGroupBy is a pending grouped aggregation
type LazyGroupBy struct {
	lazyFrame *LazyFrame
	keys      []expr.Expr
}

// Agg returns a LazyFrame with one row per distinct key combination: the key
// columns followed by one column per aggregation.
func (lgb *LazyGroupBy) Agg(aggregations ...expr.Expr) *LazyFrame {
	return &LazyFrame{
		root: &aggregateNode{
			input: lgb.lazyFrame.root,
			keys:  lgb.keys,
			aggs:  append([]expr.Expr(nil), aggregations...),
		},
		exec: lgb.lazyFrame.exec,
	}
}

// Sum creates a sum aggregation for the specified column
func (lgb *LazyGroupBy) Sum(column string) *LazyFrame {
	return lgb.Agg(expr.Sum(expr.Col(column)))
}

// Count creates a count aggregation for the specified column
func (lgb *LazyGroupBy) Count(column string) *LazyFrame {
	return lgb.Agg(expr.Count(expr.Col(column)))
}

// Mean creates a mean aggregation for the specified column
func (lgb *LazyGroupBy) Mean(column string) *LazyFrame {
	return lgb.Agg(expr.Mean(expr.Col(column)))
}

// Min creates a min aggregation for the specified column
func (lgb *LazyGroupBy) Min(column string) *LazyFrame {
	return lgb.Agg(expr.Min(expr.Col(column)))
}

// Max creates a max aggregation for the specified column
func (lgb *LazyGroupBy) Max(column string) *LazyFrame {
	return lgb.Agg(expr.Max(expr.Col(column)))
}
