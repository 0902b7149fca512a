package common

import (
	"fmt"
	"strings"
)

// FormatFunction formats a function-like string representation
// Pattern: functionName(arg1, arg2, ...)
func FormatFunction(name string, args ...string) string {
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// FormatMethod formats a method call on a receiver
// Pattern: receiver.method(arg1, ...)
func FormatMethod(receiver, method string, args ...string) string {
	return fmt.Sprintf("%s.%s(%s)", receiver, method, strings.Join(args, ", "))
}

// FormatBinaryOperation formats a binary operation string representation
// Pattern: (left operator right).
func FormatBinaryOperation(left, operator, right string) string {
	return fmt.Sprintf("(%s %s %s)", left, operator, right)
}

// FormatAlias formats an aliased expression
func FormatAlias(expression, alias string) string {
	return fmt.Sprintf("%s.alias(%q)", expression, alias)
}

// FormatList joins string forms of items as a bracketed list.
func FormatList[T fmt.Stringer](items []T) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// UniqueName returns name, or name+suffix (repeated) until it is not taken.
func UniqueName(name, suffix string, taken func(string) bool) string {
	for taken(name) {
		name += suffix
	}
	return name
}
