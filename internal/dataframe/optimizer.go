package dataframe

import (
	"github.com/paveg/polecat/internal/expr"
)

// QueryOptimizer applies rewrite rules to a plan before execution
type QueryOptimizer struct {
	rules []OptimizationRule
}

// OptimizationRule rewrites a single node. It returns the replacement and
// whether anything changed; the node's inputs are optimized afterwards.
type OptimizationRule interface {
	Apply(node planNode) (planNode, bool)
	Name() string
}

// NewQueryOptimizer creates an optimizer. With limitPushdown false no rule
// changes the plan.
func NewQueryOptimizer(limitPushdown bool) *QueryOptimizer {
	if !limitPushdown {
		return &QueryOptimizer{}
	}
	return &QueryOptimizer{
		rules: []OptimizationRule{
			&SliceFusionRule{},
			&LimitPushdownRule{},
		},
	}
}

// maxRewritesPerNode bounds rule application on one node
const maxRewritesPerNode = 64

// Optimize returns the rewritten plan and the names of the rules that
// fired, in order. The input plan is not modified.
func (qo *QueryOptimizer) Optimize(root planNode) (planNode, []string) {
	var applied []string
	var visit func(n planNode) planNode
	visit = func(n planNode) planNode {
		for i := 0; i < maxRewritesPerNode; i++ {
			changed := false
			for _, rule := range qo.rules {
				if next, ok := rule.Apply(n); ok {
					n = next
					changed = true
					applied = append(applied, rule.Name())
				}
			}
			if !changed {
				break
			}
		}
		inputs := n.inputs()
		if len(inputs) == 0 {
			return n
		}
		rewritten := make([]planNode, len(inputs))
		differs := false
		for i, in := range inputs {
			rewritten[i] = visit(in)
			if rewritten[i] != in {
				differs = true
			}
		}
		if !differs {
			return n
		}
		return n.withInputs(rewritten)
	}
	return visit(root), applied
}

// SliceFusionRule merges a slice of a slice into one slice
type SliceFusionRule struct{}

func (r *SliceFusionRule) Name() string {
	return "SliceFusion"
}

func (r *SliceFusionRule) Apply(node planNode) (planNode, bool) {
	outer, ok := node.(*sliceNode)
	if !ok {
		return node, false
	}
	inner, ok := outer.input.(*sliceNode)
	if !ok {
		return node, false
	}
	offset := inner.offset + outer.offset
	length := inner.length - outer.offset
	if length < 0 {
		length = 0
	}
	if outer.length < length {
		length = outer.length
	}
	return &sliceNode{input: inner.input, offset: offset, length: length}, true
}

// LimitPushdownRule moves a row window below projections that keep rows
// aligned with their input, and into scans that can stop reading early.
// It never crosses filters, sorts, aggregations, joins, unions or
// length-changing expressions.
type LimitPushdownRule struct{}

func (r *LimitPushdownRule) Name() string {
	return "LimitPushdown"
}

func (r *LimitPushdownRule) Apply(node planNode) (planNode, bool) {
	slice, ok := node.(*sliceNode)
	if !ok {
		return node, false
	}

	switch in := slice.input.(type) {
	case *selectNode:
		if !rowPreserving(in.exprs, true) {
			return node, false
		}
		pushed := &sliceNode{input: in.input, offset: slice.offset, length: slice.length}
		return &selectNode{input: pushed, exprs: in.exprs}, true
	case *withColumnsNode:
		if !rowPreserving(in.exprs, false) {
			return node, false
		}
		pushed := &sliceNode{input: in.input, offset: slice.offset, length: slice.length}
		return &withColumnsNode{input: pushed, exprs: in.exprs}, true
	case *sourceScan:
		want := slice.offset + slice.length
		if in.limit >= 0 && in.limit <= want {
			return node, false
		}
		scan := &sourceScan{source: in.source, limit: want}
		return &sliceNode{input: scan, offset: slice.offset, length: slice.length}, true
	}
	return node, false
}

// rowPreserving reports whether every expression maps input row i to output
// row i. A select additionally needs one column-bound expression, otherwise
// its height does not follow the input.
func rowPreserving(exprs []expr.Expr, needsColumn bool) bool {
	bound := !needsColumn
	for _, e := range exprs {
		if !expr.IsElementwise(e) {
			return false
		}
		if expr.HasColumns(e) {
			bound = true
		}
	}
	return bound
}
