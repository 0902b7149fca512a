package expr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (e *Evaluator) stringFunction(name string, args []arrow.Array) (arrow.Array, error) {
	in := args[0]
	if name == FnStrExplode {
		return e.flatten(in)
	}

	get, ok := stringGetter(in)
	if !ok {
		if typeOf(in) != value.TypeNull {
			return nil, errors.NewTypeMismatchError(name, "str", typeName(in))
		}
		get = func(int) string { return "" }
	}
	n := in.Len()

	switch name {
	case FnStrUpper, FnStrLower, FnStrTitle:
		transform := strings.ToUpper
		switch name {
		case FnStrLower:
			transform = strings.ToLower
		case FnStrTitle:
			transform = cases.Title(language.Und).String
		}
		out := make([]string, n)
		for i := range out {
			if !value.IsNullAt(in, i) {
				out[i] = transform(get(i))
			}
		}
		return series.BuildArray(out, validity(in), e.mem)

	case FnStrLengths, FnStrNChars:
		out := make([]uint32, n)
		for i := range out {
			if value.IsNullAt(in, i) {
				continue
			}
			if name == FnStrLengths {
				out[i] = uint32(len(get(i)))
			} else {
				out[i] = uint32(utf8.RuneCountInString(get(i)))
			}
		}
		return series.BuildArray(out, validity(in), e.mem)

	case FnStrStarts, FnStrEnds, FnStrContains:
		if len(args) < 2 {
			return nil, errors.NewExecutionError(name, "a pattern argument is required")
		}
		pattern := args[1]
		pget, ok := stringGetter(pattern)
		if !ok {
			if typeOf(pattern) != value.TypeNull {
				return nil, errors.NewTypeMismatchError(name, "str pattern", typeName(pattern))
			}
			pget = func(int) string { return "" }
		}
		size, err := resultLength(name, n, pattern.Len())
		if err != nil {
			return nil, err
		}
		match := strings.HasPrefix
		switch name {
		case FnStrEnds:
			match = strings.HasSuffix
		case FnStrContains:
			match = strings.Contains
		}
		out := make([]bool, size)
		valid := make([]bool, size)
		for i := range out {
			si, pi := at(in, i), at(pattern, i)
			if value.IsNullAt(in, si) || value.IsNullAt(pattern, pi) {
				continue
			}
			out[i], valid[i] = match(get(si), pget(pi)), true
		}
		return series.BuildArray(out, valid, e.mem)
	}
	return nil, errors.NewExecutionError("Function", fmt.Sprintf("unknown function %q", name))
}
