// Package expr provides the immutable expression tree used by lazy plans and
// the evaluator that runs it against columns. Nodes are never mutated after
// construction, so a tree may be attached to any number of plans and read
// from any number of goroutines.
package expr

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/polecat/internal/common"
	"github.com/paveg/polecat/internal/validation"
	"github.com/paveg/polecat/internal/value"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprFunction
	ExprAggregation
	ExprCast
	ExprAlias
	ExprRename
	ExprStructField
	ExprWindow
)

// Expr represents an expression that can be evaluated lazily
type Expr interface {
	Type() ExprType
	String() string
	Children() []Expr
}

// ColumnExpr represents a column reference
type ColumnExpr struct {
	name string
}

func (c *ColumnExpr) Type() ExprType   { return ExprColumn }
func (c *ColumnExpr) String() string   { return common.FormatFunction("col", c.name) }
func (c *ColumnExpr) Children() []Expr { return nil }
func (c *ColumnExpr) Name() string     { return c.name }

// LiteralExpr represents a scalar constant. An untyped null literal has
// declared type Null and takes the other operand's type in binary operations.
// A dynamic literal comes from a plain Go int; it is i64 on its own but takes
// the numeric type of the other operand when its value fits.
type LiteralExpr struct {
	value   value.Value
	dynamic bool
}

func (l *LiteralExpr) Type() ExprType     { return ExprLiteral }
func (l *LiteralExpr) Children() []Expr   { return nil }
func (l *LiteralExpr) Value() value.Value { return l.value }
func (l *LiteralExpr) Dynamic() bool      { return l.dynamic }

func (l *LiteralExpr) String() string {
	if l.value.IsNull() {
		return common.FormatFunction("lit", "null")
	}
	return common.FormatFunction("lit", l.value.String())
}

// DataType returns the Arrow type the literal evaluates to.
func (l *LiteralExpr) DataType() arrow.DataType {
	dt, ok := l.value.DeclaredType().ArrowType()
	if !ok {
		return arrow.Null
	}
	return dt
}

// BinaryOp represents binary operations
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%", OpPow: "**",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&", OpOr: "|", OpXor: "^",
}

func (op BinaryOp) String() string {
	return binaryOpSymbols[op]
}

func (op BinaryOp) isArithmetic() bool { return op <= OpPow }
func (op BinaryOp) isComparison() bool { return op >= OpEq && op <= OpGe }

// BinaryExpr represents a binary operation
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
}

func (b *BinaryExpr) Type() ExprType   { return ExprBinary }
func (b *BinaryExpr) Children() []Expr { return []Expr{b.left, b.right} }
func (b *BinaryExpr) Left() Expr       { return b.left }
func (b *BinaryExpr) Op() BinaryOp     { return b.op }
func (b *BinaryExpr) Right() Expr      { return b.right }

func (b *BinaryExpr) String() string {
	return common.FormatBinaryOperation(b.left.String(), b.op.String(), b.right.String())
}

// UnaryOp represents unary operations
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryExpr represents a unary operation
type UnaryExpr struct {
	op      UnaryOp
	operand Expr
}

func (u *UnaryExpr) Type() ExprType   { return ExprUnary }
func (u *UnaryExpr) Children() []Expr { return []Expr{u.operand} }
func (u *UnaryExpr) Op() UnaryOp      { return u.op }
func (u *UnaryExpr) Operand() Expr    { return u.operand }

func (u *UnaryExpr) String() string {
	if u.op == UnaryNot {
		return common.FormatMethod(u.operand.String(), "not")
	}
	return "-" + u.operand.String()
}

// AggregationType identifies a reducer
type AggregationType int

const (
	AggSum AggregationType = iota
	AggProduct
	AggMean
	AggMedian
	AggMin
	AggMax
	AggNanMin
	AggNanMax
	AggArgMin
	AggArgMax
	AggNUnique
	AggCount
	AggFirst
	AggLast
)

var aggregationNames = [...]string{
	AggSum: "sum", AggProduct: "product", AggMean: "mean", AggMedian: "median",
	AggMin: "min", AggMax: "max", AggNanMin: "nan_min", AggNanMax: "nan_max",
	AggArgMin: "arg_min", AggArgMax: "arg_max", AggNUnique: "n_unique",
	AggCount: "count", AggFirst: "first", AggLast: "last",
}

func (a AggregationType) String() string {
	return aggregationNames[a]
}

// AggregationExpr reduces its input to a single value. Inside a group-by it
// reduces each group; elsewhere it reduces the whole column.
type AggregationExpr struct {
	input   Expr
	aggType AggregationType
}

func (a *AggregationExpr) Type() ExprType           { return ExprAggregation }
func (a *AggregationExpr) Children() []Expr         { return []Expr{a.input} }
func (a *AggregationExpr) Input() Expr              { return a.input }
func (a *AggregationExpr) AggType() AggregationType { return a.aggType }

func (a *AggregationExpr) String() string {
	return common.FormatMethod(a.input.String(), a.aggType.String())
}

// FunctionExpr applies a named function. args[0] is the receiver.
type FunctionExpr struct {
	name string
	args []Expr
}

func (f *FunctionExpr) Type() ExprType   { return ExprFunction }
func (f *FunctionExpr) Children() []Expr { return f.args }
func (f *FunctionExpr) Name() string     { return f.name }
func (f *FunctionExpr) Args() []Expr     { return f.args }

func (f *FunctionExpr) String() string {
	rest := make([]string, 0, len(f.args)-1)
	for _, a := range f.args[1:] {
		rest = append(rest, a.String())
	}
	return common.FormatMethod(f.args[0].String(), f.name, rest...)
}

// CastExpr converts its input to another type at execution time.
type CastExpr struct {
	input Expr
	to    value.Type
}

func (c *CastExpr) Type() ExprType     { return ExprCast }
func (c *CastExpr) Children() []Expr   { return []Expr{c.input} }
func (c *CastExpr) Input() Expr        { return c.input }
func (c *CastExpr) Target() value.Type { return c.to }

func (c *CastExpr) String() string {
	return common.FormatMethod(c.input.String(), "cast", c.to.String())
}

// AliasExpr names the output of its input.
type AliasExpr struct {
	input Expr
	name  string
}

func (a *AliasExpr) Type() ExprType   { return ExprAlias }
func (a *AliasExpr) Children() []Expr { return []Expr{a.input} }
func (a *AliasExpr) Input() Expr      { return a.input }
func (a *AliasExpr) Name() string     { return a.name }
func (a *AliasExpr) String() string   { return common.FormatAlias(a.input.String(), a.name) }

// RenameKind selects how a RenameExpr derives its output name.
type RenameKind int

const (
	RenameKeepName RenameKind = iota
	RenamePrefix
	RenameSuffix
)

// RenameExpr derives its output name from the root column name.
type RenameExpr struct {
	input Expr
	kind  RenameKind
	text  string
}

func (r *RenameExpr) Type() ExprType   { return ExprRename }
func (r *RenameExpr) Children() []Expr { return []Expr{r.input} }
func (r *RenameExpr) Input() Expr      { return r.input }

func (r *RenameExpr) String() string {
	switch r.kind {
	case RenamePrefix:
		return common.FormatMethod(r.input.String(), "prefix", strconv.Quote(r.text))
	case RenameSuffix:
		return common.FormatMethod(r.input.String(), "suffix", strconv.Quote(r.text))
	default:
		return common.FormatMethod(r.input.String(), "keep_name")
	}
}

// StructFieldExpr extracts one field of a struct column.
type StructFieldExpr struct {
	input Expr
	field string
}

func (s *StructFieldExpr) Type() ExprType   { return ExprStructField }
func (s *StructFieldExpr) Children() []Expr { return []Expr{s.input} }
func (s *StructFieldExpr) Input() Expr      { return s.input }
func (s *StructFieldExpr) Field() string    { return s.field }

func (s *StructFieldExpr) String() string {
	return common.FormatMethod(s.input.String(), "struct.field", strconv.Quote(s.field))
}

// WindowExpr evaluates its input once per partition and maps the results
// back onto the rows of that partition.
type WindowExpr struct {
	input       Expr
	partitionBy []Expr
}

func (w *WindowExpr) Type() ExprType      { return ExprWindow }
func (w *WindowExpr) Input() Expr         { return w.input }
func (w *WindowExpr) PartitionBy() []Expr { return w.partitionBy }

func (w *WindowExpr) Children() []Expr {
	return append([]Expr{w.input}, w.partitionBy...)
}

func (w *WindowExpr) String() string {
	parts := make([]string, len(w.partitionBy))
	for i, p := range w.partitionBy {
		parts[i] = p.String()
	}
	return common.FormatMethod(w.input.String(), "over", parts...)
}

// Constructors

// Col creates a column reference
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

// ColBytes creates a column reference from raw name bytes, rejecting
// invalid UTF-8.
func ColBytes(name []byte) (*ColumnExpr, error) {
	if err := validation.ValidateEncoding(name, "Col", "column name"); err != nil {
		return nil, err
	}
	return &ColumnExpr{name: string(name)}, nil
}

// Lit creates a literal from a Go value. nil is the untyped null; int and
// uint map to i64 and u64.
func Lit(v any) *LiteralExpr {
	switch x := v.(type) {
	case nil:
		return LitNull()
	case value.Value:
		return &LiteralExpr{value: x}
	case int:
		return &LiteralExpr{value: value.Of(int64(x)), dynamic: true}
	case uint:
		return LitOf(uint64(x))
	case bool:
		return LitOf(x)
	case int8:
		return LitOf(x)
	case int16:
		return LitOf(x)
	case int32:
		return LitOf(x)
	case int64:
		return LitOf(x)
	case uint8:
		return LitOf(x)
	case uint16:
		return LitOf(x)
	case uint32:
		return LitOf(x)
	case uint64:
		return LitOf(x)
	case float32:
		return LitOf(x)
	case float64:
		return LitOf(x)
	case string:
		return LitOf(x)
	case []byte:
		return LitOf(x)
	}
	return &LiteralExpr{value: value.NullOf(value.TypeUnknown)}
}

// LitOf creates a typed literal
func LitOf[T value.Primitive](v T) *LiteralExpr {
	return &LiteralExpr{value: value.Of(v)}
}

// LitNull creates the untyped null literal
func LitNull() *LiteralExpr {
	return &LiteralExpr{value: value.Null()}
}

// LitTypedNull creates a null literal of a declared type
func LitTypedNull(t value.Type) *LiteralExpr {
	return &LiteralExpr{value: value.NullOf(t)}
}

// LitUtf8Bytes creates a string literal from raw bytes, rejecting invalid UTF-8.
func LitUtf8Bytes(b []byte) (*LiteralExpr, error) {
	if err := validation.ValidateEncoding(b, "Lit", "string literal"); err != nil {
		return nil, err
	}
	return LitOf(string(b)), nil
}

// Binary creates a binary operation
func Binary(op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{left: left, op: op, right: right}
}

// Not creates a boolean negation
func Not(e Expr) *UnaryExpr {
	return &UnaryExpr{op: UnaryNot, operand: e}
}

// Neg creates an arithmetic negation
func Neg(e Expr) *UnaryExpr {
	return &UnaryExpr{op: UnaryNeg, operand: e}
}

// Aggregate wraps e in a reducer
func Aggregate(aggType AggregationType, e Expr) *AggregationExpr {
	return &AggregationExpr{input: e, aggType: aggType}
}

// Function applies the named function to receiver and args
func Function(name string, receiver Expr, args ...Expr) *FunctionExpr {
	return &FunctionExpr{name: name, args: append([]Expr{receiver}, args...)}
}

// Cast converts e to type t at execution
func Cast(e Expr, t value.Type) *CastExpr {
	return &CastExpr{input: e, to: t}
}

// Alias names e's output
func Alias(e Expr, name string) *AliasExpr {
	return &AliasExpr{input: e, name: name}
}

// AliasBytes names e's output from raw bytes, rejecting invalid UTF-8.
func AliasBytes(e Expr, name []byte) (*AliasExpr, error) {
	if err := validation.ValidateEncoding(name, "Alias", "alias"); err != nil {
		return nil, err
	}
	return &AliasExpr{input: e, name: string(name)}, nil
}

// KeepName keeps the root column name whatever the expression does
func KeepName(e Expr) *RenameExpr {
	return &RenameExpr{input: e, kind: RenameKeepName}
}

// Prefix prepends text to the root column name
func Prefix(e Expr, text string) *RenameExpr {
	return &RenameExpr{input: e, kind: RenamePrefix, text: text}
}

// Suffix appends text to the root column name
func Suffix(e Expr, text string) *RenameExpr {
	return &RenameExpr{input: e, kind: RenameSuffix, text: text}
}

// StructField extracts a named field of a struct expression
func StructField(e Expr, field string) *StructFieldExpr {
	return &StructFieldExpr{input: e, field: field}
}

// Over evaluates e per partition of partitionBy
func Over(e Expr, partitionBy ...Expr) *WindowExpr {
	return &WindowExpr{input: e, partitionBy: partitionBy}
}

// Sum creates a sum aggregation
func Sum(e Expr) *AggregationExpr { return Aggregate(AggSum, e) }

// Count creates a count aggregation
func Count(e Expr) *AggregationExpr { return Aggregate(AggCount, e) }

// Mean creates a mean aggregation
func Mean(e Expr) *AggregationExpr { return Aggregate(AggMean, e) }

// Min creates a min aggregation
func Min(e Expr) *AggregationExpr { return Aggregate(AggMin, e) }

// Max creates a max aggregation
func Max(e Expr) *AggregationExpr { return Aggregate(AggMax, e) }
