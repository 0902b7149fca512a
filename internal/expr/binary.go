package expr

import (
	"bytes"
	"cmp"
	"context"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/common"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

func (e *Evaluator) evaluateBinary(ctx context.Context, expr *BinaryExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	left, err := e.Evaluate(ctx, expr.left, columns)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(ctx, expr.right, columns)
	if err != nil {
		left.Release()
		return nil, err
	}
	left = e.adoptLiteral(expr.left, left, right)
	right = e.adoptLiteral(expr.right, right, left)
	defer left.Release()
	defer right.Release()

	return e.ApplyBinary(expr.op, left, right)
}

// adoptLiteral re-evaluates a dynamic literal in the numeric type of other
// when the value fits, releasing arr. Otherwise arr is returned as is.
func (e *Evaluator) adoptLiteral(ex Expr, arr, other arrow.Array) arrow.Array {
	lit, ok := ex.(*LiteralExpr)
	if !ok || !lit.dynamic || lit.value.IsNull() {
		return arr
	}
	target := typeOf(other)
	if target == typeOf(arr) {
		return arr
	}
	v, ok := lit.value.Interface().(int64)
	if !ok {
		return arr
	}
	fitted, ok := fitInteger(v, target)
	if !ok {
		return arr
	}
	out, err := e.evaluateLiteral(&LiteralExpr{value: fitted})
	if err != nil {
		return arr
	}
	arr.Release()
	return out
}

// ApplyBinary runs op over two evaluated operands.
func (e *Evaluator) ApplyBinary(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	n, err := resultLength(op.String(), left.Len(), right.Len())
	if err != nil {
		return nil, err
	}
	switch {
	case op.isArithmetic():
		return e.arithmetic(op, left, right, n)
	case op.isComparison():
		return e.comparison(op, left, right, n)
	default:
		return e.logical(op, left, right, n)
	}
}

func (e *Evaluator) arithmetic(op BinaryOp, left, right arrow.Array, n int) (arrow.Array, error) {
	lt, rt := typeOf(left), typeOf(right)
	st, ok := common.NumericSupertype(lt, rt)
	if !ok {
		return nil, errors.NewTypeMismatchError(op.String(), "numeric operands", lt.String()+" and "+rt.String())
	}
	if op == OpPow {
		return arith[float64](op, left, right, n, value.TypeFloat64, e.mem)
	}
	switch {
	case st == value.TypeNull:
		return array.NewNull(n), nil
	case st.IsFloat():
		return arith[float64](op, left, right, n, st, e.mem)
	case st.IsUnsignedInteger():
		return arith[uint64](op, left, right, n, st, e.mem)
	default:
		return arith[int64](op, left, right, n, st, e.mem)
	}
}

func arith[T number](op BinaryOp, left, right arrow.Array, n int, st value.Type, mem memory.Allocator) (arrow.Array, error) {
	lv, err := widen[T](left)
	if err != nil {
		return nil, err
	}
	rv, err := widen[T](right)
	if err != nil {
		return nil, err
	}

	isFloat := st.IsFloat()
	out := make([]T, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		li, ri := at(left, i), at(right, i)
		if value.IsNullAt(left, li) || value.IsNullAt(right, ri) {
			continue
		}
		a, b := lv[li], rv[ri]
		switch op {
		case OpAdd:
			out[i] = a + b
		case OpSub:
			out[i] = a - b
		case OpMul:
			out[i] = a * b
		case OpDiv:
			if !isFloat && b == 0 {
				continue
			}
			out[i] = a / b
		case OpRem:
			if isFloat {
				out[i] = T(math.Mod(float64(a), float64(b)))
				break
			}
			if b == 0 {
				continue
			}
			out[i] = a - (a/b)*b
		case OpPow:
			out[i] = T(math.Pow(float64(a), float64(b)))
		}
		valid[i] = true
	}
	return buildNumeric(st, out, valid, mem)
}

func (e *Evaluator) comparison(op BinaryOp, left, right arrow.Array, n int) (arrow.Array, error) {
	lt, rt := typeOf(left), typeOf(right)
	if lt == value.TypeNull || rt == value.TypeNull {
		return series.NullArray(arrow.FixedWidthTypes.Boolean, n, e.mem), nil
	}

	var cmpAt func(li, ri int) (int, bool)
	switch {
	case lt.IsNumeric() && rt.IsNumeric():
		st, _ := common.NumericSupertype(lt, rt)
		var err error
		switch {
		case lt.IsUnsignedInteger() && rt.IsSignedInteger():
			cmpAt, err = mixedSignComparer(left, right, true)
		case lt.IsSignedInteger() && rt.IsUnsignedInteger():
			cmpAt, err = mixedSignComparer(left, right, false)
		case st.IsFloat():
			cmpAt, err = floatComparer(left, right)
		case st.IsUnsignedInteger():
			cmpAt, err = orderedComparer[uint64](left, right)
		default:
			cmpAt, err = orderedComparer[int64](left, right)
		}
		if err != nil {
			return nil, err
		}
	case lt == value.TypeUtf8 && rt == value.TypeUtf8:
		lg, _ := stringGetter(left)
		rg, _ := stringGetter(right)
		cmpAt = func(li, ri int) (int, bool) { return strings.Compare(lg(li), rg(ri)), true }
	case lt == value.TypeBinary && rt == value.TypeBinary:
		lg, _ := binaryGetter(left)
		rg, _ := binaryGetter(right)
		cmpAt = func(li, ri int) (int, bool) { return bytes.Compare(lg(li), rg(ri)), true }
	case lt == value.TypeBoolean && rt == value.TypeBoolean:
		lb, rb := left.(*array.Boolean), right.(*array.Boolean)
		cmpAt = func(li, ri int) (int, bool) { return compareBools(lb.Value(li), rb.Value(ri)), true }
	default:
		return nil, errors.NewTypeMismatchError(op.String(), "comparable operands", lt.String()+" and "+rt.String())
	}

	out := make([]bool, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		li, ri := at(left, i), at(right, i)
		if value.IsNullAt(left, li) || value.IsNullAt(right, ri) {
			continue
		}
		valid[i] = true
		c, ordered := cmpAt(li, ri)
		if !ordered {
			// NaN compares unequal to everything
			out[i] = op == OpNe
			continue
		}
		switch op {
		case OpEq:
			out[i] = c == 0
		case OpNe:
			out[i] = c != 0
		case OpLt:
			out[i] = c < 0
		case OpLe:
			out[i] = c <= 0
		case OpGt:
			out[i] = c > 0
		case OpGe:
			out[i] = c >= 0
		}
	}
	return series.BuildArray(out, valid, e.mem)
}

func orderedComparer[T int64 | uint64](left, right arrow.Array) (func(int, int) (int, bool), error) {
	lv, err := widen[T](left)
	if err != nil {
		return nil, err
	}
	rv, err := widen[T](right)
	if err != nil {
		return nil, err
	}
	return func(li, ri int) (int, bool) { return cmp.Compare(lv[li], rv[ri]), true }, nil
}

// mixedSignComparer compares an unsigned and a signed integer operand
// exactly. No common integer type holds both u64 and i64.
func mixedSignComparer(left, right arrow.Array, leftUnsigned bool) (func(int, int) (int, bool), error) {
	u, s := left, right
	if !leftUnsigned {
		u, s = right, left
	}
	uv, err := widen[uint64](u)
	if err != nil {
		return nil, err
	}
	sv, err := widen[int64](s)
	if err != nil {
		return nil, err
	}
	compare := func(ui, si int) int {
		if sv[si] < 0 {
			return 1
		}
		return cmp.Compare(uv[ui], uint64(sv[si]))
	}
	if leftUnsigned {
		return func(li, ri int) (int, bool) { return compare(li, ri), true }, nil
	}
	return func(li, ri int) (int, bool) { return -compare(ri, li), true }, nil
}

func floatComparer(left, right arrow.Array) (func(int, int) (int, bool), error) {
	lv, err := widen[float64](left)
	if err != nil {
		return nil, err
	}
	rv, err := widen[float64](right)
	if err != nil {
		return nil, err
	}
	return func(li, ri int) (int, bool) {
		a, b := lv[li], rv[ri]
		if math.IsNaN(a) || math.IsNaN(b) {
			return 0, false
		}
		return cmp.Compare(a, b), true
	}, nil
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// logical implements and/or with three-valued logic and xor with null
// propagation.
func (e *Evaluator) logical(op BinaryOp, left, right arrow.Array, n int) (arrow.Array, error) {
	lb, lok := asBooleanOrNull(left)
	rb, rok := asBooleanOrNull(right)
	if !lok || !rok {
		return nil, errors.NewTypeMismatchError(op.String(), "bool operands", typeName(left)+" and "+typeName(right))
	}

	out := make([]bool, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		a, aok := lb(at(left, i))
		b, bok := rb(at(right, i))
		switch op {
		case OpAnd:
			switch {
			case (aok && !a) || (bok && !b):
				out[i], valid[i] = false, true
			case aok && bok:
				out[i], valid[i] = true, true
			}
		case OpOr:
			switch {
			case (aok && a) || (bok && b):
				out[i], valid[i] = true, true
			case aok && bok:
				out[i], valid[i] = false, true
			}
		case OpXor:
			if aok && bok {
				out[i], valid[i] = a != b, true
			}
		}
	}
	return series.BuildArray(out, valid, e.mem)
}

// asBooleanOrNull returns an accessor yielding (value, valid).
func asBooleanOrNull(arr arrow.Array) (func(int) (bool, bool), bool) {
	switch a := arr.(type) {
	case *array.Boolean:
		return func(i int) (bool, bool) {
			if a.IsNull(i) {
				return false, false
			}
			return a.Value(i), true
		}, true
	case *array.Null:
		return func(int) (bool, bool) { return false, false }, true
	}
	return nil, false
}

func (e *Evaluator) evaluateUnary(ctx context.Context, expr *UnaryExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	in, err := e.Evaluate(ctx, expr.operand, columns)
	if err != nil {
		return nil, err
	}
	defer in.Release()

	if expr.op == UnaryNot {
		get, ok := asBooleanOrNull(in)
		if !ok {
			return nil, errors.NewTypeMismatchError("not", "bool", typeName(in))
		}
		out := make([]bool, in.Len())
		valid := make([]bool, in.Len())
		for i := range out {
			v, ok := get(i)
			out[i], valid[i] = !v, ok
		}
		return series.BuildArray(out, valid, e.mem)
	}

	t := typeOf(in)
	switch {
	case t == value.TypeNull:
		return array.NewNull(in.Len()), nil
	case t.IsFloat():
		vals, err := widen[float64](in)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = -vals[i]
		}
		return buildNumeric(t, vals, validity(in), e.mem)
	case t.IsSignedInteger():
		vals, err := widen[int64](in)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = -vals[i]
		}
		return buildNumeric(t, vals, validity(in), e.mem)
	}
	return nil, errors.NewTypeMismatchError("neg", "signed numeric", t.String())
}
