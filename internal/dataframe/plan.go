package dataframe

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/common"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/monitoring"
)

// Source is a deferred table such as a file on disk. Read honours limit when
// it is non-negative and may return fewer rows only when the source has
// fewer.
type Source interface {
	Describe() string
	Schema(ctx context.Context) (*arrow.Schema, error)
	Read(ctx context.Context, limit int, mem memory.Allocator) (*DataFrame, error)
}

// planNode is one immutable step of a logical plan.
type planNode interface {
	inputs() []planNode
	withInputs(inputs []planNode) planNode
	describe() (string, string)
}

// dataFrameScan owns df. Plans are shared between LazyFrames and have no
// single owner, so the reference is dropped when the node is collected.
type dataFrameScan struct {
	df *DataFrame
}

func newDataFrameScan(df *DataFrame) *dataFrameScan {
	n := &dataFrameScan{df: df}
	runtime.AddCleanup(n, (*DataFrame).Release, df)
	return n
}

func (n *dataFrameScan) inputs() []planNode             { return nil }
func (n *dataFrameScan) withInputs([]planNode) planNode { return n }
func (n *dataFrameScan) describe() (string, string) {
	return "DataFrameScan", fmt.Sprintf("[%s]; %d rows", strings.Join(n.df.Columns(), ", "), n.df.Len())
}

// sourceScan reads a Source. limit < 0 reads everything.
type sourceScan struct {
	source Source
	limit  int
}

func (n *sourceScan) inputs() []planNode             { return nil }
func (n *sourceScan) withInputs([]planNode) planNode { return n }
func (n *sourceScan) describe() (string, string) {
	if n.limit >= 0 {
		return "Scan", fmt.Sprintf("%s; limit %d", n.source.Describe(), n.limit)
	}
	return "Scan", n.source.Describe()
}

type selectNode struct {
	input planNode
	exprs []expr.Expr
}

func (n *selectNode) inputs() []planNode { return []planNode{n.input} }
func (n *selectNode) withInputs(in []planNode) planNode {
	return &selectNode{input: in[0], exprs: n.exprs}
}
func (n *selectNode) describe() (string, string) { return "Select", formatExprs(n.exprs) }

type withColumnsNode struct {
	input planNode
	exprs []expr.Expr
}

func (n *withColumnsNode) inputs() []planNode { return []planNode{n.input} }
func (n *withColumnsNode) withInputs(in []planNode) planNode {
	return &withColumnsNode{input: in[0], exprs: n.exprs}
}
func (n *withColumnsNode) describe() (string, string) { return "WithColumns", formatExprs(n.exprs) }

type filterNode struct {
	input     planNode
	predicate expr.Expr
}

func (n *filterNode) inputs() []planNode { return []planNode{n.input} }
func (n *filterNode) withInputs(in []planNode) planNode {
	return &filterNode{input: in[0], predicate: n.predicate}
}
func (n *filterNode) describe() (string, string) { return "Filter", n.predicate.String() }

// SortOptions controls Sort. Descending holds no entry (all ascending), one
// entry applied to every key, or one entry per key. Null placement does not
// depend on direction.
type SortOptions struct {
	Descending    []bool
	NullsLast     bool
	MaintainOrder bool
}

type sortNode struct {
	input planNode
	by    []expr.Expr
	opts  SortOptions
}

func (n *sortNode) inputs() []planNode { return []planNode{n.input} }
func (n *sortNode) withInputs(in []planNode) planNode {
	return &sortNode{input: in[0], by: n.by, opts: n.opts}
}
func (n *sortNode) describe() (string, string) {
	return "Sort", fmt.Sprintf("by %s; descending %v; nulls_last %t", formatExprs(n.by), n.opts.Descending, n.opts.NullsLast)
}

type aggregateNode struct {
	input planNode
	keys  []expr.Expr
	aggs  []expr.Expr
}

func (n *aggregateNode) inputs() []planNode { return []planNode{n.input} }
func (n *aggregateNode) withInputs(in []planNode) planNode {
	return &aggregateNode{input: in[0], keys: n.keys, aggs: n.aggs}
}
func (n *aggregateNode) describe() (string, string) {
	return "Aggregate", fmt.Sprintf("by %s; agg %s", formatExprs(n.keys), formatExprs(n.aggs))
}

type joinNode struct {
	left, right     planNode
	leftOn, rightOn []expr.Expr
}

func (n *joinNode) inputs() []planNode { return []planNode{n.left, n.right} }
func (n *joinNode) withInputs(in []planNode) planNode {
	return &joinNode{left: in[0], right: in[1], leftOn: n.leftOn, rightOn: n.rightOn}
}
func (n *joinNode) describe() (string, string) {
	return "Join", fmt.Sprintf("inner on %s = %s", formatExprs(n.leftOn), formatExprs(n.rightOn))
}

type unionNode struct {
	parts []planNode
}

func (n *unionNode) inputs() []planNode { return n.parts }
func (n *unionNode) withInputs(in []planNode) planNode {
	return &unionNode{parts: in}
}
func (n *unionNode) describe() (string, string) { return "Union", fmt.Sprintf("%d inputs", len(n.parts)) }

type sliceNode struct {
	input          planNode
	offset, length int
}

func (n *sliceNode) inputs() []planNode { return []planNode{n.input} }
func (n *sliceNode) withInputs(in []planNode) planNode {
	return &sliceNode{input: in[0], offset: n.offset, length: n.length}
}
func (n *sliceNode) describe() (string, string) {
	return "Slice", fmt.Sprintf("offset %d; length %d", n.offset, n.length)
}

func formatExprs(exprs []expr.Expr) string {
	return common.FormatList(exprs)
}

// describePlan renders a node tree into a QueryPlan.
func describePlan(root planNode) monitoring.QueryPlan {
	pb := monitoring.NewPlanBuilder()
	var walk func(n planNode)
	walk = func(n planNode) {
		for _, in := range n.inputs() {
			walk(in)
		}
		typ, desc := n.describe()
		if len(n.inputs()) == 0 {
			pb.Leaf(typ, desc)
			return
		}
		pb.Wrap(typ, desc, len(n.inputs()))
	}
	walk(root)
	return pb.Build()
}

// outputNames returns the output names of exprs.
// referencedColumns lists the distinct columns exprs read, in first-seen order.
func referencedColumns(exprs ...expr.Expr) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range exprs {
		for _, name := range expr.Columns(e) {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

func outputNames(exprs []expr.Expr) []string {
	names := make([]string, len(exprs))
	for i, e := range exprs {
		names[i] = expr.OutputName(e)
	}
	return names
}

// suffixed resolves a name collision the way joins do.
func suffixed(name string, taken map[string]struct{}) string {
	return common.UniqueName(name, joinSuffix, func(candidate string) bool {
		_, ok := taken[candidate]
		return ok
	})
}
