package polecat

import (
	"github.com/paveg/polecat/internal/expr"
)

// Expr is an immutable expression. Every combinator returns a new Expr and
// leaves its receiver unchanged.
type Expr struct {
	e expr.Expr
}

func (e Expr) String() string { return e.e.String() }

// OutputName is the column name the expression produces.
func (e Expr) OutputName() string { return expr.OutputName(e.e) }

// Col references a column by name.
func Col(name string) Expr {
	return Expr{e: expr.Col(name)}
}

// ColBytes references a column by raw name bytes, which must be UTF-8.
func ColBytes(name []byte) (Expr, error) {
	c, err := expr.ColBytes(name)
	if err != nil {
		return Expr{}, err
	}
	return Expr{e: c}, nil
}

// Lit creates a literal from a Go value. nil is the untyped null and uint
// becomes u64. An int takes the numeric type of the other operand when the
// value fits there, and is i64 otherwise.
func Lit(v any) Expr { return Expr{e: expr.Lit(v)} }

func LitBool(v bool) Expr       { return Expr{e: expr.LitOf(v)} }
func LitInt8(v int8) Expr       { return Expr{e: expr.LitOf(v)} }
func LitInt16(v int16) Expr     { return Expr{e: expr.LitOf(v)} }
func LitInt32(v int32) Expr     { return Expr{e: expr.LitOf(v)} }
func LitInt64(v int64) Expr     { return Expr{e: expr.LitOf(v)} }
func LitUint8(v uint8) Expr     { return Expr{e: expr.LitOf(v)} }
func LitUint16(v uint16) Expr   { return Expr{e: expr.LitOf(v)} }
func LitUint32(v uint32) Expr   { return Expr{e: expr.LitOf(v)} }
func LitUint64(v uint64) Expr   { return Expr{e: expr.LitOf(v)} }
func LitFloat32(v float32) Expr { return Expr{e: expr.LitOf(v)} }
func LitFloat64(v float64) Expr { return Expr{e: expr.LitOf(v)} }
func LitString(v string) Expr   { return Expr{e: expr.LitOf(v)} }
func LitBinary(v []byte) Expr   { return Expr{e: expr.LitOf(v)} }

// LitNull is the untyped null. In a binary operation it takes the type of
// the other operand.
func LitNull() Expr { return Expr{e: expr.LitNull()} }

// LitUtf8Bytes creates a string literal from raw bytes, which must be UTF-8.
func LitUtf8Bytes(b []byte) (Expr, error) {
	l, err := expr.LitUtf8Bytes(b)
	if err != nil {
		return Expr{}, err
	}
	return Expr{e: l}, nil
}

func (e Expr) binary(op expr.BinaryOp, other Expr) Expr {
	return Expr{e: expr.Binary(op, e.e, other.e)}
}

// Arithmetic. Integer division truncates and a zero divisor yields null.
// Pow always yields f64.
func (e Expr) Add(other Expr) Expr { return e.binary(expr.OpAdd, other) }
func (e Expr) Sub(other Expr) Expr { return e.binary(expr.OpSub, other) }
func (e Expr) Mul(other Expr) Expr { return e.binary(expr.OpMul, other) }
func (e Expr) Div(other Expr) Expr { return e.binary(expr.OpDiv, other) }
func (e Expr) Rem(other Expr) Expr { return e.binary(expr.OpRem, other) }
func (e Expr) Pow(other Expr) Expr { return e.binary(expr.OpPow, other) }

// Comparison.
func (e Expr) Eq(other Expr) Expr   { return e.binary(expr.OpEq, other) }
func (e Expr) Neq(other Expr) Expr  { return e.binary(expr.OpNe, other) }
func (e Expr) Lt(other Expr) Expr   { return e.binary(expr.OpLt, other) }
func (e Expr) LtEq(other Expr) Expr { return e.binary(expr.OpLe, other) }
func (e Expr) Gt(other Expr) Expr   { return e.binary(expr.OpGt, other) }
func (e Expr) GtEq(other Expr) Expr { return e.binary(expr.OpGe, other) }

// And and Or use three-valued logic; Xor is null when either side is.
func (e Expr) And(other Expr) Expr { return e.binary(expr.OpAnd, other) }
func (e Expr) Or(other Expr) Expr  { return e.binary(expr.OpOr, other) }
func (e Expr) Xor(other Expr) Expr { return e.binary(expr.OpXor, other) }

func (e Expr) Not() Expr { return Expr{e: expr.Not(e.e)} }
func (e Expr) Neg() Expr { return Expr{e: expr.Neg(e.e)} }

func (e Expr) agg(t expr.AggregationType) Expr {
	return Expr{e: expr.Aggregate(t, e.e)}
}

// Reducers. Outside a group-by they reduce the whole column to one row.
func (e Expr) Sum() Expr     { return e.agg(expr.AggSum) }
func (e Expr) Product() Expr { return e.agg(expr.AggProduct) }
func (e Expr) Mean() Expr    { return e.agg(expr.AggMean) }
func (e Expr) Median() Expr  { return e.agg(expr.AggMedian) }
func (e Expr) Min() Expr     { return e.agg(expr.AggMin) }
func (e Expr) Max() Expr     { return e.agg(expr.AggMax) }
func (e Expr) NanMin() Expr  { return e.agg(expr.AggNanMin) }
func (e Expr) NanMax() Expr  { return e.agg(expr.AggNanMax) }
func (e Expr) ArgMin() Expr  { return e.agg(expr.AggArgMin) }
func (e Expr) ArgMax() Expr  { return e.agg(expr.AggArgMax) }
func (e Expr) NUnique() Expr { return e.agg(expr.AggNUnique) }
func (e Expr) Count() Expr   { return e.agg(expr.AggCount) }
func (e Expr) First() Expr   { return e.agg(expr.AggFirst) }
func (e Expr) Last() Expr    { return e.agg(expr.AggLast) }

func (e Expr) fn(name string, args ...Expr) Expr {
	return Expr{e: expr.Function(name, e.e, unwrap(args)...)}
}

func (e Expr) IsNull() Expr     { return e.fn(expr.FnIsNull) }
func (e Expr) IsNotNull() Expr  { return e.fn(expr.FnIsNotNull) }
func (e Expr) IsNan() Expr      { return e.fn(expr.FnIsNan) }
func (e Expr) IsNotNan() Expr   { return e.fn(expr.FnIsNotNan) }
func (e Expr) IsFinite() Expr   { return e.fn(expr.FnIsFinite) }
func (e Expr) IsInfinite() Expr { return e.fn(expr.FnIsInfinite) }

func (e Expr) Abs() Expr   { return e.fn(expr.FnAbs) }
func (e Expr) Floor() Expr { return e.fn(expr.FnFloor) }
func (e Expr) Ceil() Expr  { return e.fn(expr.FnCeil) }
func (e Expr) Round() Expr { return e.fn(expr.FnRound) }
func (e Expr) Sqrt() Expr  { return e.fn(expr.FnSqrt) }
func (e Expr) Sin() Expr   { return e.fn(expr.FnSin) }
func (e Expr) Cos() Expr   { return e.fn(expr.FnCos) }
func (e Expr) Tan() Expr   { return e.fn(expr.FnTan) }
func (e Expr) Sinh() Expr  { return e.fn(expr.FnSinh) }
func (e Expr) Cosh() Expr  { return e.fn(expr.FnCosh) }
func (e Expr) Tanh() Expr  { return e.fn(expr.FnTanh) }

// Length-changing operations.
func (e Expr) Unique() Expr    { return e.fn(expr.FnUnique) }
func (e Expr) Reverse() Expr   { return e.fn(expr.FnReverse) }
func (e Expr) DropNulls() Expr { return e.fn(expr.FnDropNulls) }
func (e Expr) DropNans() Expr  { return e.fn(expr.FnDropNans) }
func (e Expr) Implode() Expr   { return e.fn(expr.FnImplode) }

// Flatten turns each list into its elements, or each string into its
// characters.
func (e Expr) Flatten() Expr { return e.fn(expr.FnFlatten) }

// Explode is Flatten.
func (e Expr) Explode() Expr { return e.Flatten() }

// Cast converts to t. Values that do not fit fail the query.
func (e Expr) Cast(t ValueType) Expr { return Expr{e: expr.Cast(e.e, t)} }

func (e Expr) Alias(name string) Expr  { return Expr{e: expr.Alias(e.e, name)} }
func (e Expr) Prefix(text string) Expr { return Expr{e: expr.Prefix(e.e, text)} }
func (e Expr) Suffix(text string) Expr { return Expr{e: expr.Suffix(e.e, text)} }
func (e Expr) KeepName() Expr          { return Expr{e: expr.KeepName(e.e)} }

// AliasBytes renames to raw name bytes, which must be UTF-8.
func (e Expr) AliasBytes(name []byte) (Expr, error) {
	a, err := expr.AliasBytes(e.e, name)
	if err != nil {
		return Expr{}, err
	}
	return Expr{e: a}, nil
}

// Field selects a struct field. Null struct rows give null fields.
func (e Expr) Field(name string) Expr { return Expr{e: expr.StructField(e.e, name)} }

// Over evaluates e within each partition and maps the results back to the
// original rows.
func (e Expr) Over(partitionBy ...Expr) Expr {
	return Expr{e: expr.Over(e.e, unwrap(partitionBy)...)}
}

// Str returns the string namespace.
func (e Expr) Str() StrNamespace { return StrNamespace{e: e} }

// Arr returns the list namespace.
func (e Expr) Arr() ListNamespace { return ListNamespace{e: e} }

// StrNamespace holds string operations. Applied to a non-string column they
// fail when the query runs.
type StrNamespace struct {
	e Expr
}

func (s StrNamespace) ToUppercase() Expr { return s.e.fn(expr.FnStrUpper) }
func (s StrNamespace) ToLowercase() Expr { return s.e.fn(expr.FnStrLower) }
func (s StrNamespace) ToTitlecase() Expr { return s.e.fn(expr.FnStrTitle) }
func (s StrNamespace) Lengths() Expr     { return s.e.fn(expr.FnStrLengths) }
func (s StrNamespace) NChars() Expr      { return s.e.fn(expr.FnStrNChars) }
func (s StrNamespace) Explode() Expr     { return s.e.fn(expr.FnStrExplode) }

func (s StrNamespace) StartsWith(prefix Expr) Expr { return s.e.fn(expr.FnStrStarts, prefix) }
func (s StrNamespace) EndsWith(suffix Expr) Expr   { return s.e.fn(expr.FnStrEnds, suffix) }

// Contains matches pattern as a literal substring.
func (s StrNamespace) Contains(pattern Expr) Expr { return s.e.fn(expr.FnStrContains, pattern) }

// ListNamespace holds list operations.
type ListNamespace struct {
	e Expr
}

func (l ListNamespace) Lengths() Expr { return l.e.fn(expr.FnListLengths) }
func (l ListNamespace) Max() Expr     { return l.e.fn(expr.FnListMax) }
func (l ListNamespace) Min() Expr     { return l.e.fn(expr.FnListMin) }
func (l ListNamespace) Sum() Expr     { return l.e.fn(expr.FnListSum) }
func (l ListNamespace) Mean() Expr    { return l.e.fn(expr.FnListMean) }
func (l ListNamespace) First() Expr   { return l.e.fn(expr.FnListFirst) }
func (l ListNamespace) Last() Expr    { return l.e.fn(expr.FnListLast) }
func (l ListNamespace) ArgMin() Expr  { return l.e.fn(expr.FnListArgMin) }
func (l ListNamespace) ArgMax() Expr  { return l.e.fn(expr.FnListArgMax) }
func (l ListNamespace) Reverse() Expr { return l.e.fn(expr.FnListReverse) }
func (l ListNamespace) Unique() Expr  { return l.e.fn(expr.FnListUnique) }

// Get returns element idx of each list. Negative indices count from the
// end and out of range indices give null.
func (l ListNamespace) Get(idx Expr) Expr { return l.e.fn(expr.FnListGet, idx) }

func (l ListNamespace) Head(n Expr) Expr        { return l.e.fn(expr.FnListHead, n) }
func (l ListNamespace) Tail(n Expr) Expr        { return l.e.fn(expr.FnListTail, n) }
func (l ListNamespace) Contains(item Expr) Expr { return l.e.fn(expr.FnListContains, item) }
