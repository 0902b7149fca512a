package expr

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

// Evaluator evaluates expressions against Arrow arrays
type Evaluator struct {
	mem memory.Allocator
}

// NewEvaluator creates a new expression evaluator
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem}
}

// Allocator returns the allocator results are built with.
func (e *Evaluator) Allocator() memory.Allocator {
	return e.mem
}

// Evaluate evaluates expr against columns. Columns are borrowed; the
// returned array is a new reference owned by the caller. Literals and
// reducers produce length-1 arrays that callers broadcast as needed.
func (e *Evaluator) Evaluate(ctx context.Context, expr Expr, columns map[string]arrow.Array) (arrow.Array, error) {
	switch ex := expr.(type) {
	case *ColumnExpr:
		return e.evaluateColumn(ex, columns)
	case *LiteralExpr:
		return e.evaluateLiteral(ex)
	case *BinaryExpr:
		return e.evaluateBinary(ctx, ex, columns)
	case *UnaryExpr:
		return e.evaluateUnary(ctx, ex, columns)
	case *AggregationExpr:
		in, err := e.Evaluate(ctx, ex.input, columns)
		if err != nil {
			return nil, err
		}
		defer in.Release()
		return e.Reduce(ex.aggType, in)
	case *FunctionExpr:
		return e.evaluateFunction(ctx, ex, columns)
	case *CastExpr:
		return e.evaluateCast(ctx, ex, columns)
	case *AliasExpr:
		return e.Evaluate(ctx, ex.input, columns)
	case *RenameExpr:
		return e.Evaluate(ctx, ex.input, columns)
	case *StructFieldExpr:
		return e.evaluateStructField(ctx, ex, columns)
	case *WindowExpr:
		return e.evaluateWindow(ctx, ex, columns)
	default:
		return nil, errors.NewExecutionError("Evaluate", fmt.Sprintf("unsupported expression type: %T", expr))
	}
}

// EvaluateBoolean evaluates an expression that must produce booleans
func (e *Evaluator) EvaluateBoolean(ctx context.Context, expr Expr, columns map[string]arrow.Array) (*array.Boolean, error) {
	out, err := e.Evaluate(ctx, expr, columns)
	if err != nil {
		return nil, err
	}
	switch out.DataType().ID() {
	case arrow.BOOL:
		return out.(*array.Boolean), nil
	case arrow.NULL:
		n := out.Len()
		out.Release()
		return series.NullArray(arrow.FixedWidthTypes.Boolean, n, e.mem).(*array.Boolean), nil
	}
	actual := typeName(out)
	out.Release()
	return nil, errors.NewTypeMismatchError("Filter", "bool", actual)
}

func (e *Evaluator) evaluateColumn(expr *ColumnExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	arr, ok := columns[expr.name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Evaluate", expr.name)
	}
	arr.Retain()
	return arr, nil
}

func (e *Evaluator) evaluateLiteral(expr *LiteralExpr) (arrow.Array, error) {
	v := expr.value
	if v.IsNull() {
		if v.DeclaredType() == value.TypeUnknown {
			return nil, errors.NewUnsupportedTypeError("Literal", "unknown")
		}
		return series.NullArray(expr.DataType(), 1, e.mem), nil
	}
	switch p := v.Interface().(type) {
	case bool:
		return scalar(p, e.mem)
	case uint8:
		return scalar(p, e.mem)
	case uint16:
		return scalar(p, e.mem)
	case uint32:
		return scalar(p, e.mem)
	case uint64:
		return scalar(p, e.mem)
	case int8:
		return scalar(p, e.mem)
	case int16:
		return scalar(p, e.mem)
	case int32:
		return scalar(p, e.mem)
	case int64:
		return scalar(p, e.mem)
	case float32:
		return scalar(p, e.mem)
	case float64:
		return scalar(p, e.mem)
	case string:
		return scalar(p, e.mem)
	case []byte:
		return scalar(p, e.mem)
	}
	return nil, errors.NewUnsupportedTypeError("Literal", v.DeclaredType().String())
}

func scalar[T value.Primitive](v T, mem memory.Allocator) (arrow.Array, error) {
	return series.BuildArray([]T{v}, nil, mem)
}

func (e *Evaluator) evaluateCast(ctx context.Context, expr *CastExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	in, err := e.Evaluate(ctx, expr.input, columns)
	if err != nil {
		return nil, err
	}
	defer in.Release()
	return e.castArray(ctx, in, expr.to)
}

// Cast strictly converts in to type to. Values that cannot be represented
// fail with an execution error.
func (e *Evaluator) Cast(ctx context.Context, in arrow.Array, to value.Type) (arrow.Array, error) {
	return e.castArray(ctx, in, to)
}

func (e *Evaluator) castArray(ctx context.Context, in arrow.Array, to value.Type) (arrow.Array, error) {
	dt, ok := to.ArrowType()
	if !ok {
		return nil, errors.NewUnsupportedTypeError("Cast", to.String())
	}
	if arrow.TypeEqual(in.DataType(), dt) {
		in.Retain()
		return in, nil
	}
	if in.DataType().ID() == arrow.NULL {
		return series.NullArray(dt, in.Len(), e.mem), nil
	}
	out, err := compute.CastArray(compute.WithAllocator(ctx, e.mem), in, compute.SafeCastOptions(dt))
	if err != nil {
		return nil, &errors.DataFrameError{
			Kind:    errors.KindExecution,
			Op:      "Cast",
			Message: fmt.Sprintf("cannot cast %s to %s", typeName(in), to),
			Cause:   err,
		}
	}
	return out, nil
}

func (e *Evaluator) evaluateStructField(ctx context.Context, expr *StructFieldExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	in, err := e.Evaluate(ctx, expr.input, columns)
	if err != nil {
		return nil, err
	}
	defer in.Release()

	st, ok := in.(*array.Struct)
	if !ok {
		return nil, errors.NewTypeMismatchError("struct.field", "struct", typeName(in))
	}
	idx, ok := st.DataType().(*arrow.StructType).FieldIdx(expr.field)
	if !ok {
		return nil, errors.NewColumnNotFoundError("struct.field", expr.field)
	}
	field := st.Field(idx)
	if st.NullN() == 0 {
		field.Retain()
		return field, nil
	}
	indices := make([]int, st.Len())
	for i := range indices {
		indices[i] = i
		if st.IsNull(i) {
			indices[i] = -1
		}
	}
	return series.TakeArray(field, indices, e.mem)
}

func typeName(arr arrow.Array) string {
	return value.FromArrow(arr.DataType()).String()
}

func typeOf(arr arrow.Array) value.Type {
	return value.FromArrow(arr.DataType())
}

// resultLength is the output length of an element-wise op over operands of
// lengths a and b, where a length-1 operand broadcasts.
func resultLength(op string, a, b int) (int, error) {
	switch {
	case a == b:
		return a, nil
	case a == 1:
		return b, nil
	case b == 1:
		return a, nil
	}
	return 0, errors.NewExecutionError(op, fmt.Sprintf("cannot combine columns of length %d and %d", a, b))
}

// at maps output row i onto a possibly broadcast operand.
func at(arr arrow.Array, i int) int {
	if arr.Len() == 1 {
		return 0
	}
	return i
}
