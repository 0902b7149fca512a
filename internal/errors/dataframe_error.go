// Package errors provides the kinded error type returned by every fallible
// engine operation. Each DataFrameError carries a Kind (construction, type,
// schema, io, execution) plus the operation and column it relates to, and
// supports wrapping through Unwrap.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DataFrameError.
type Kind int

const (
	// KindExecution is the catch-all for plan evaluation failures.
	KindExecution Kind = iota
	// KindConstruction reports bad input shape or encoding at build time.
	KindConstruction
	// KindType reports an operation applied to an incompatible type.
	KindType
	// KindSchema reports unknown columns and schema mismatches.
	KindSchema
	// KindIO reports Parquet and sink failures.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConstruction:
		return "construction error"
	case KindType:
		return "type error"
	case KindSchema:
		return "schema error"
	case KindIO:
		return "io error"
	default:
		return "execution error"
	}
}

// DataFrameError represents standardized errors across all DataFrame operations
type DataFrameError struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g., "Sort", "Filter", "Join")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg = msg + ": " + e.Cause.Error()
		}
	}
	if e.Column != "" {
		return fmt.Sprintf("%s: %s operation failed on column '%s': %s", e.Kind, e.Op, e.Column, msg)
	}
	return fmt.Sprintf("%s: %s operation failed: %s", e.Kind, e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind (such as ErrSchema) matches any error of that kind.
func (e *DataFrameError) Is(target error) bool {
	df, ok := target.(*DataFrameError)
	if !ok {
		return false
	}
	if df.Op == "" && df.Column == "" && df.Message == "" && df.Cause == nil {
		return e.Kind == df.Kind
	}
	return e.Kind == df.Kind && e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
}

// Kind sentinels for errors.Is matching.
var (
	ErrConstruction = &DataFrameError{Kind: KindConstruction}
	ErrType         = &DataFrameError{Kind: KindType}
	ErrSchema       = &DataFrameError{Kind: KindSchema}
	ErrIO           = &DataFrameError{Kind: KindIO}
	ErrExecution    = &DataFrameError{Kind: KindExecution}
)

// ErrSinkAborted is the cause of every IO error raised because a sink asked to stop.
var ErrSinkAborted = stderrors.New("sink aborted write")

// KindOf returns the Kind of the first DataFrameError in err's chain.
// Errors from outside the engine are reported as KindExecution.
func KindOf(err error) Kind {
	var df *DataFrameError
	if stderrors.As(err, &df) {
		return df.Kind
	}
	return KindExecution
}

// NewConstructionError creates an error for malformed input at build time
func NewConstructionError(op, message string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindConstruction,
		Op:      op,
		Message: message,
	}
}

// NewInvalidEncodingError creates an error for text that is not valid UTF-8
func NewInvalidEncodingError(op, what string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindConstruction,
		Op:      op,
		Message: fmt.Sprintf("%s is not valid utf-8", what),
	}
}

// NewDuplicateColumnError creates an error for repeated column names
func NewDuplicateColumnError(op, column string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindConstruction,
		Op:      op,
		Column:  column,
		Message: "duplicate column name",
	}
}

// NewLengthMismatchError creates an error for columns of differing lengths
func NewLengthMismatchError(op, column string, expected, actual int) *DataFrameError {
	return &DataFrameError{
		Kind:    KindConstruction,
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("length %d does not match expected length %d", actual, expected),
	}
}

// NewTypeMismatchError creates an error for values or columns of the wrong type
func NewTypeMismatchError(op, expected, actual string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindType,
		Op:      op,
		Message: fmt.Sprintf("expected %s, got %s", expected, actual),
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindType,
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindSchema,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewSchemaError creates an error for schema disagreements
func NewSchemaError(op, message string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindSchema,
		Op:      op,
		Message: message,
	}
}

// NewIOError creates an error for read and write failures
func NewIOError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Kind:  KindIO,
		Op:    op,
		Cause: cause,
	}
}

// NewExecutionError creates an error for plan evaluation failures
func NewExecutionError(op, message string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindExecution,
		Op:      op,
		Message: message,
	}
}

// NewIndexOutOfRangeError creates an error for out-of-bounds positional access
func NewIndexOutOfRangeError(op string, index, length int) *DataFrameError {
	return &DataFrameError{
		Kind:    KindExecution,
		Op:      op,
		Message: fmt.Sprintf("index %d out of range for length %d", index, length),
	}
}

// Wrap attaches op context to err. An error that already carries a Kind keeps
// it; foreign errors become kind k.
func Wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var df *DataFrameError
	if stderrors.As(err, &df) {
		k = df.Kind
	}
	return &DataFrameError{Kind: k, Op: op, Cause: err}
}
