package store

import (
	"fmt"
	"strings"

	"github.com/floorlink/backend/internal/domain"
)

// The filter clause form is deliberately small: a conjunction of
// `field op :param` terms. It is not a query language; anything it cannot
// express belongs in a server-side command, not in a client filter.

type filterOp int

const (
	opEq filterOp = iota
	opNeq
	opLt
	opLte
	opGt
	opGte
	opIn
)

var filterOps = map[string]filterOp{
	"=":  opEq,
	"!=": opNeq,
	"<":  opLt,
	"<=": opLte,
	">":  opGt,
	">=": opGte,
	"in": opIn,
}

type filterTerm struct {
	getter *domain.Accessor
	op     filterOp
	value  any
}

// CompiledFilter is a parsed, bound clause ready for repeated evaluation.
type CompiledFilter struct {
	terms []filterTerm
}

// CompileFilter parses a where clause against a class descriptor and binds
// its parameters. Unknown fields, unknown operators, and missing parameters
// all fail here, before any object is touched.
func CompileFilter(desc *domain.ClassDescriptor, where string, params map[string]any) (*CompiledFilter, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return &CompiledFilter{}, nil
	}

	var terms []filterTerm
	for _, raw := range strings.Split(where, " AND ") {
		fields := strings.Fields(raw)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed clause term %q", strings.TrimSpace(raw))
		}
		name, opText, param := fields[0], fields[1], fields[2]

		getter, ok := desc.Property(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q for class %s", name, desc.Name)
		}
		op, ok := filterOps[strings.ToLower(opText)]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", opText)
		}
		if !strings.HasPrefix(param, ":") || len(param) == 1 {
			return nil, fmt.Errorf("term %q: value must be a :parameter reference", strings.TrimSpace(raw))
		}
		value, ok := params[param[1:]]
		if !ok {
			return nil, fmt.Errorf("missing parameter %q", param[1:])
		}
		if op == opIn {
			if _, ok := value.([]any); !ok {
				return nil, fmt.Errorf("parameter %q: in requires a list", param[1:])
			}
		}

		terms = append(terms, filterTerm{getter: getter, op: op, value: value})
	}
	return &CompiledFilter{terms: terms}, nil
}

// Matches evaluates the clause against one object. Terms are conjunctive; an
// uncomparable pair fails the term rather than erroring.
func (f *CompiledFilter) Matches(obj domain.Object) bool {
	for _, t := range f.terms {
		if !t.matches(obj) {
			return false
		}
	}
	return true
}

func (t filterTerm) matches(obj domain.Object) bool {
	actual := t.getter.Get(obj)

	switch t.op {
	case opEq:
		return equalValues(actual, t.value)
	case opNeq:
		return !equalValues(actual, t.value)
	case opIn:
		for _, v := range t.value.([]any) {
			if equalValues(actual, v) {
				return true
			}
		}
		return false
	}

	a, b, ok := numericPair(actual, t.value)
	if !ok {
		return false
	}
	switch t.op {
	case opLt:
		return a < b
	case opLte:
		return a <= b
	case opGt:
		return a > b
	case opGte:
		return a >= b
	}
	return false
}

// equalValues compares a property value against a parameter value. Numbers
// compare numerically regardless of int/float64 representation (parameters
// arrive JSON-decoded, so their numbers are float64).
func equalValues(a, b any) bool {
	if x, y, ok := numericPair(a, b); ok {
		return x == y
	}
	return a == b
}

func numericPair(a, b any) (float64, float64, bool) {
	x, ok := asFloat(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := asFloat(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
