package monitoring

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlanNode describes one operation of a query plan.
type PlanNode struct {
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Children    []PlanNode `json:"children,omitempty"`
}

// QueryPlan is a described plan tree plus the rewrites applied to it.
type QueryPlan struct {
	Root      PlanNode `json:"root"`
	Optimized bool     `json:"optimized"`
	Rewrites  []string `json:"rewrites,omitempty"`
}

// PlanBuilder assembles a PlanNode tree bottom-up.
type PlanBuilder struct {
	stack []PlanNode
}

// NewPlanBuilder creates an empty builder.
func NewPlanBuilder() *PlanBuilder {
	return &PlanBuilder{}
}

// Leaf pushes a node without inputs.
func (pb *PlanBuilder) Leaf(opType, description string) *PlanBuilder {
	pb.stack = append(pb.stack, PlanNode{Type: opType, Description: description})
	return pb
}

// Wrap pops the top inputs nodes and pushes a node that consumes them, in
// the order they were pushed.
func (pb *PlanBuilder) Wrap(opType, description string, inputs int) *PlanBuilder {
	if inputs > len(pb.stack) {
		inputs = len(pb.stack)
	}
	split := len(pb.stack) - inputs
	children := append([]PlanNode(nil), pb.stack[split:]...)
	pb.stack = append(pb.stack[:split], PlanNode{Type: opType, Description: description, Children: children})
	return pb
}

// Build returns the plan rooted at the last pushed node.
func (pb *PlanBuilder) Build() QueryPlan {
	if len(pb.stack) == 0 {
		return QueryPlan{}
	}
	return QueryPlan{Root: pb.stack[len(pb.stack)-1]}
}

// ToJSON renders the plan as indented JSON.
func (qp *QueryPlan) ToJSON() ([]byte, error) {
	return json.MarshalIndent(qp, "", "  ")
}

// GetOperationCount returns the total number of operations in the plan.
func (qp *QueryPlan) GetOperationCount() int {
	if qp.Root.Type == "" {
		return 0
	}
	return countNodes(&qp.Root)
}

func countNodes(node *PlanNode) int {
	count := 1
	for i := range node.Children {
		count += countNodes(&node.Children[i])
	}
	return count
}

// String renders the plan as an indented tree, root first.
func (qp *QueryPlan) String() string {
	var b strings.Builder
	if qp.Root.Type != "" {
		renderNode(&b, &qp.Root, "")
	}
	for _, r := range qp.Rewrites {
		fmt.Fprintf(&b, "rewrite: %s\n", r)
	}
	return b.String()
}

func renderNode(b *strings.Builder, node *PlanNode, indent string) {
	if node.Description == "" {
		fmt.Fprintf(b, "%s%s\n", indent, node.Type)
	} else {
		fmt.Fprintf(b, "%s%s: %s\n", indent, node.Type, node.Description)
	}
	for i := range node.Children {
		renderNode(b, &node.Children[i], indent+"  ")
	}
}
