package expr

// Function names. Namespaced functions carry their namespace as a prefix.
const (
	FnAbs   = "abs"
	FnFloor = "floor"
	FnCeil  = "ceil"
	FnRound = "round"
	FnSqrt  = "sqrt"
	FnSin   = "sin"
	FnCos   = "cos"
	FnTan   = "tan"
	FnSinh  = "sinh"
	FnCosh  = "cosh"
	FnTanh  = "tanh"

	FnIsNull      = "is_null"
	FnIsNotNull   = "is_not_null"
	FnIsNan       = "is_nan"
	FnIsNotNan    = "is_not_nan"
	FnIsFinite    = "is_finite"
	FnIsInfinite  = "is_infinite"
	FnUnique      = "unique"
	FnReverse     = "reverse"
	FnDropNulls   = "drop_nulls"
	FnDropNans    = "drop_nans"
	FnImplode     = "implode"
	FnFlatten     = "flatten"
	FnStrExplode  = "str.explode"
	FnStrUpper    = "str.to_uppercase"
	FnStrLower    = "str.to_lowercase"
	FnStrTitle    = "str.to_titlecase"
	FnStrLengths  = "str.lengths"
	FnStrNChars   = "str.n_chars"
	FnStrStarts   = "str.starts_with"
	FnStrEnds     = "str.ends_with"
	FnStrContains = "str.contains"

	FnListLengths  = "list.lengths"
	FnListMax      = "list.max"
	FnListMin      = "list.min"
	FnListSum      = "list.sum"
	FnListMean     = "list.mean"
	FnListFirst    = "list.first"
	FnListLast     = "list.last"
	FnListArgMin   = "list.arg_min"
	FnListArgMax   = "list.arg_max"
	FnListGet      = "list.get"
	FnListHead     = "list.head"
	FnListTail     = "list.tail"
	FnListReverse  = "list.reverse"
	FnListUnique   = "list.unique"
	FnListContains = "list.contains"
)

// functions whose output length differs from their input
var lengthChanging = map[string]bool{
	FnUnique:     true,
	FnReverse:    true,
	FnDropNulls:  true,
	FnDropNans:   true,
	FnImplode:    true,
	FnFlatten:    true,
	FnStrExplode: true,
}

// OutputName resolves the column name an expression produces: an alias wins,
// rename wrappers derive from the root column, a plain expression keeps its
// leftmost column's name, and an expression without columns is named by its
// string form.
func OutputName(e Expr) string {
	switch n := e.(type) {
	case *AliasExpr:
		return n.name
	case *ColumnExpr:
		return n.name
	case *RenameExpr:
		root := rootName(n.input)
		switch n.kind {
		case RenamePrefix:
			return n.text + root
		case RenameSuffix:
			return root + n.text
		default:
			return root
		}
	}
	return rootName(e)
}

func rootName(e Expr) string {
	if name, ok := rootColumn(e); ok {
		return name
	}
	return e.String()
}

func rootColumn(e Expr) (string, bool) {
	if c, ok := e.(*ColumnExpr); ok {
		return c.name, true
	}
	for _, child := range e.Children() {
		if name, ok := rootColumn(child); ok {
			return name, true
		}
	}
	return "", false
}

// Columns returns the distinct column names e references, in first-seen order.
func Columns(e Expr) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(Expr)
	walk = func(n Expr) {
		if c, ok := n.(*ColumnExpr); ok {
			if _, dup := seen[c.name]; !dup {
				seen[c.name] = struct{}{}
				out = append(out, c.name)
			}
			return
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(e)
	return out
}

// IsElementwise reports whether row i of the output depends only on row i of
// the input. Such expressions commute with a row limit.
func IsElementwise(e Expr) bool {
	switch n := e.(type) {
	case *AggregationExpr, *WindowExpr:
		return false
	case *FunctionExpr:
		if lengthChanging[n.name] {
			return false
		}
	}
	for _, child := range e.Children() {
		if !IsElementwise(child) {
			return false
		}
	}
	return true
}

// HasColumns reports whether e references any column.
func HasColumns(e Expr) bool {
	_, ok := rootColumn(e)
	return ok
}

// Reduces reports whether e always yields exactly one row regardless of its
// input height. Group-by wraps the results of expressions that do not reduce
// into a list per group.
func Reduces(e Expr) bool {
	switch n := e.(type) {
	case *AggregationExpr, *LiteralExpr:
		return true
	case *ColumnExpr, *WindowExpr:
		return false
	case *FunctionExpr:
		if n.name == FnImplode {
			return true
		}
		if lengthChanging[n.name] {
			return false
		}
		for _, arg := range n.args {
			if !Reduces(arg) {
				return false
			}
		}
		return true
	}
	for _, child := range e.Children() {
		if !Reduces(child) {
			return false
		}
	}
	return true
}
