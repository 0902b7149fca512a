// Package validation provides the construction-time checks shared by Series,
// DataFrame, expression and plan builders: name encoding, name uniqueness,
// length consistency and column existence.
package validation

import (
	"unicode/utf8"

	"github.com/paveg/polecat/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// NamedColumn is anything with a name and a row count.
type NamedColumn interface {
	Name() string
	Len() int
}

// EncodingValidator checks that text is valid UTF-8
type EncodingValidator struct {
	text []byte
	what string
	op   string
}

// NewEncodingValidator creates a validator for raw name bytes
func NewEncodingValidator(text []byte, op, what string) *EncodingValidator {
	return &EncodingValidator{text: text, what: what, op: op}
}

// Validate checks the encoding
func (v *EncodingValidator) Validate() error {
	if !utf8.Valid(v.text) {
		return errors.NewInvalidEncodingError(v.op, v.what)
	}
	return nil
}

// FrameShapeValidator checks a set of columns can form one table:
// valid names, no duplicates, equal lengths.
type FrameShapeValidator struct {
	columns []NamedColumn
	op      string
}

// NewFrameShapeValidator creates a validator for DataFrame construction
func NewFrameShapeValidator(op string, columns ...NamedColumn) *FrameShapeValidator {
	return &FrameShapeValidator{columns: columns, op: op}
}

// Validate returns the first shape problem found
func (v *FrameShapeValidator) Validate() error {
	seen := make(map[string]struct{}, len(v.columns))
	for i, col := range v.columns {
		name := col.Name()
		if !utf8.ValidString(name) {
			return errors.NewInvalidEncodingError(v.op, "column name")
		}
		if _, dup := seen[name]; dup {
			return errors.NewDuplicateColumnError(v.op, name)
		}
		seen[name] = struct{}{}
		if i > 0 && col.Len() != v.columns[0].Len() {
			return errors.NewLengthMismatchError(v.op, name, v.columns[0].Len(), col.Len())
		}
	}
	return nil
}

// UniqueNamesValidator checks output names of a projection
type UniqueNamesValidator struct {
	names []string
	op    string
}

// NewUniqueNamesValidator creates a validator for projection outputs
func NewUniqueNamesValidator(op string, names ...string) *UniqueNamesValidator {
	return &UniqueNamesValidator{names: names, op: op}
}

// Validate reports the first repeated name as a schema error
func (v *UniqueNamesValidator) Validate() error {
	seen := make(map[string]struct{}, len(v.names))
	for _, name := range v.names {
		if _, dup := seen[name]; dup {
			return &errors.DataFrameError{
				Kind:    errors.KindSchema,
				Op:      v.op,
				Column:  name,
				Message: "duplicate output column name",
			}
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ColumnValidator validates column existence and properties
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist in the DataFrame
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.df.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEncoding is a convenience function for encoding validation
func ValidateEncoding(text []byte, op, what string) error {
	return NewEncodingValidator(text, op, what).Validate()
}

// ValidateFrameShape is a convenience function for frame construction
func ValidateFrameShape(op string, columns ...NamedColumn) error {
	return NewFrameShapeValidator(op, columns...).Validate()
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateUniqueNames is a convenience function for projection outputs
func ValidateUniqueNames(op string, names ...string) error {
	return NewUniqueNamesValidator(op, names...).Validate()
}
